package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/hackpal/pkg/log"
)

const (
	HistoryBackendSQLite   = "sqlite"
	HistoryBackendDynamoDB = "dynamodb"
	HistoryBackendMemory   = "memory"

	RouterModeRules = "rules"
	RouterModeModel = "model"
)

type AppConfig struct {
	RuntimePath string `env:"HACKPAL_RUNTIME_PATH" envDefault:".hackpal"`

	// HTTP
	Port           string        `env:"PORT" envDefault:"5000"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"3m"`

	// Transport Flags
	EnableHTTP     bool `env:"ENABLE_HTTP" envDefault:"true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`

	// Storage
	HistoryBackend string `env:"HISTORY_BACKEND" envDefault:"sqlite"`
	TempDir        string `env:"HACKPAL_TEMP_DIR"`

	// Context Management
	ContextWindowSize int `env:"MEMORY_WINDOW_SIZE" envDefault:"10"`
	RetrievalLimit    int `env:"RETRIEVAL_LIMIT" envDefault:"5"`

	// Routing and providers
	RouterMode      string        `env:"ROUTER_MODE" envDefault:"rules"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"60s"`
	ProviderRetries int           `env:"PROVIDER_RETRIES" envDefault:"2"`
	MaxToolRounds   int           `env:"MAX_TOOL_ROUNDS" envDefault:"4"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = GetRuntimePath()
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "hackpal.db")
}

func (c AppConfig) GetMCPConfigPath() string {
	return filepath.Join(c.RuntimePath, "mcp_config.json")
}

func (c AppConfig) GetContextWindowSize() int {
	if c.ContextWindowSize <= 0 {
		return 10
	}
	return c.ContextWindowSize
}

func (c AppConfig) GetListenAddr() string {
	return ":" + c.Port
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}
