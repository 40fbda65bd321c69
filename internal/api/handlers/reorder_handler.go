package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/service"
)

const uploadField = "file"

type ReorderHandler struct {
	service        *service.ReorderService
	log            zerolog.Logger
	maxUploadBytes int64
	uploadDir      string
}

type HandlerConfig struct {
	MaxUploadBytes int64
	// UploadDir keeps a copy of every accepted upload when set.
	UploadDir string
	Logger    zerolog.Logger
}

func NewReorderHandler(svc *service.ReorderService, cfg HandlerConfig) *ReorderHandler {
	return &ReorderHandler{
		service:        svc,
		log:            cfg.Logger.With().Str("component", "reorder_handler").Logger(),
		maxUploadBytes: cfg.MaxUploadBytes,
		uploadDir:      cfg.UploadDir,
	}
}

// Upload replaces the active dataset with the multipart "file" field.
func (h *ReorderHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "file too large",
				"details": fmt.Sprintf("uploads are limited to %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided", "details": err.Error()})
		return
	}

	file, err := header.Open()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer file.Close()

	summary, err := h.service.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	if h.uploadDir != "" {
		dest := filepath.Join(h.uploadDir, uuid.NewString()+"_"+filepath.Base(header.Filename))
		if err := c.SaveUploadedFile(header, dest); err != nil {
			h.log.Warn().Err(err).Str("filename", header.Filename).Msg("failed to archive uploaded file")
		}
	}

	c.JSON(http.StatusCreated, summary)
}

type recommendationQuery struct {
	LeadTimeDays *float64 `form:"lead_time_days"`
	ZValue       *float64 `form:"z_value"`
	Window       *int     `form:"window"`
	Sort         string   `form:"sort"`
}

func (h *ReorderHandler) params(c *gin.Context) (reorder.Params, reorder.SortKey, error) {
	var q recommendationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return reorder.Params{}, "", &reorder.InvalidParamsError{Err: err}
	}

	params := h.service.Defaults()
	if q.LeadTimeDays != nil {
		params.LeadTimeDays = *q.LeadTimeDays
	}
	if q.ZValue != nil {
		params.ZValue = *q.ZValue
	}
	if q.Window != nil {
		params.Window = *q.Window
	}
	if err := params.Validate(); err != nil {
		return reorder.Params{}, "", err
	}

	sortKey := h.service.DefaultSort()
	if q.Sort != "" {
		key, err := reorder.ParseSortKey(q.Sort)
		if err != nil {
			return reorder.Params{}, "", err
		}
		sortKey = key
	}
	return params, sortKey, nil
}

func (h *ReorderHandler) GetRecommendations(c *gin.Context) {
	params, sortKey, err := h.params(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	res, err := h.service.Recommendations(c.Request.Context(), params, sortKey)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":        res.Recommendations,
		"count":        len(res.Recommendations),
		"warnings":     res.Warnings,
		"params":       res.Params,
		"sort":         sortKey,
		"generated_at": res.GeneratedAt,
	})
}

// DownloadRecommendations streams the latest snapshot as a CSV attachment.
func (h *ReorderHandler) DownloadRecommendations(c *gin.Context) {
	f, err := h.service.OpenSnapshot()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("inventory_recommendations_%s.csv", time.Now().Format("20060102"))
	c.DataFromReader(http.StatusOK, info.Size(), "text/csv", f, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	})
}

func (h *ReorderHandler) GetProducts(c *gin.Context) {
	products, err := h.service.Products(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": products, "count": len(products)})
}

func (h *ReorderHandler) GetTrend(c *gin.Context) {
	window := 0
	if raw := c.Query("window"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w < 1 || w > 365 {
			writeError(c, h.log, &reorder.InvalidParamsError{Err: fmt.Errorf("window must be an integer between 1 and 365, got %q", raw)})
			return
		}
		window = w
	}

	trend, err := h.service.Trend(c.Request.Context(), c.Param("product"), window)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}
