package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
	"github.com/andresuchdata/inventory-optimizer/internal/service"
	"github.com/andresuchdata/inventory-optimizer/internal/snapshot"
)

// writeError maps domain errors onto status codes with a distinct message
// for each failure the caller can act on.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		missing *reorder.MissingColumnError
		dateErr *reorder.DateParseError
		empty   *reorder.EmptyResultError
		invalid *reorder.InvalidParamsError
	)

	body := gin.H{"details": err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &missing):
		status = http.StatusUnprocessableEntity
		body["error"] = "missing required columns"
		body["missing"] = missing.Missing
		body["available"] = missing.Available
	case errors.As(err, &dateErr):
		status = http.StatusUnprocessableEntity
		body["error"] = "invalid date values"
		body["row"] = dateErr.Row
		body["value"] = dateErr.Value
		body["expected"] = dateErr.Expected
	case errors.As(err, &empty):
		status = http.StatusUnprocessableEntity
		body["error"] = "no valid products found"
	case errors.Is(err, reorder.ErrEmptyTable), errors.Is(err, ingest.ErrEmptyFile):
		status = http.StatusUnprocessableEntity
		body["error"] = "the file contains no data"
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		status = http.StatusBadRequest
		body["error"] = "unsupported file format"
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
		body["error"] = "invalid parameters"
	case errors.Is(err, service.ErrNoDataset):
		status = http.StatusNotFound
		body["error"] = "no dataset uploaded"
	case errors.Is(err, snapshot.ErrNoSnapshot):
		status = http.StatusNotFound
		body["error"] = "no recommendations computed yet"
	case errors.Is(err, reorder.ErrUnknownProduct):
		status = http.StatusNotFound
		body["error"] = "product not found"
	default:
		body["error"] = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
