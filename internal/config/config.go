package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	App     AppConfig
	Engine  EngineConfig
	Cache   CacheConfig
	Storage StorageConfig
	Drive   DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadBytes int64
}

type AppConfig struct {
	UploadDir    string
	DataDir      string
	OutputDir    string
	DatasetFile  string
	SnapshotFile string
	SeedSample   bool
}

// DatasetPath is where the active validated dataset lives.
func (a AppConfig) DatasetPath() string {
	return filepath.Join(a.DataDir, a.DatasetFile)
}

// EngineConfig holds the defaults applied when a request omits a parameter.
type EngineConfig struct {
	LeadTimeDays float64
	ZValue       float64
	Window       int
	DefaultSort  string
	BatchWorkers int
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "*")
	v.SetDefault("SERVER_MAX_UPLOAD_BYTES", 16<<20)

	v.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	v.SetDefault("APP_DATA_DIR", "./data")
	v.SetDefault("APP_OUTPUT_DIR", "./data/output")
	v.SetDefault("APP_DATASET_FILE", "active_sales.csv")
	v.SetDefault("APP_SNAPSHOT_FILE", "inventory_recommendations.csv")
	v.SetDefault("APP_SEED_SAMPLE", true)

	v.SetDefault("ENGINE_LEAD_TIME_DAYS", 7)
	v.SetDefault("ENGINE_Z_VALUE", 1.65)
	v.SetDefault("ENGINE_WINDOW", 7)
	v.SetDefault("ENGINE_DEFAULT_SORT", "input")
	v.SetDefault("ENGINE_BATCH_WORKERS", 4)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_PREFIX", "snapshots/")
	v.SetDefault("STORAGE_USE_SSL", true)
}

// Load reads .env (if present) and the environment. The upload, data and
// output directories are created.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
			MaxUploadBytes: v.GetInt64("SERVER_MAX_UPLOAD_BYTES"),
		},
		App: AppConfig{
			UploadDir:    v.GetString("APP_UPLOAD_DIR"),
			DataDir:      v.GetString("APP_DATA_DIR"),
			OutputDir:    v.GetString("APP_OUTPUT_DIR"),
			DatasetFile:  v.GetString("APP_DATASET_FILE"),
			SnapshotFile: v.GetString("APP_SNAPSHOT_FILE"),
			SeedSample:   v.GetBool("APP_SEED_SAMPLE"),
		},
		Engine: EngineConfig{
			LeadTimeDays: v.GetFloat64("ENGINE_LEAD_TIME_DAYS"),
			ZValue:       v.GetFloat64("ENGINE_Z_VALUE"),
			Window:       v.GetInt("ENGINE_WINDOW"),
			DefaultSort:  v.GetString("ENGINE_DEFAULT_SORT"),
			BatchWorkers: v.GetInt("ENGINE_BATCH_WORKERS"),
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTLSeconds:    v.GetInt("CACHE_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("DRIVE_CREDENTIALS_JSON"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
		},
	}

	if cfg.Server.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("SERVER_MAX_UPLOAD_BYTES must be positive, got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Engine.BatchWorkers < 1 {
		cfg.Engine.BatchWorkers = 1
	}

	for _, dir := range []string{cfg.App.UploadDir, cfg.App.DataDir, cfg.App.OutputDir} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, part)
	}
	return out
}
