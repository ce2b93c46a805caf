package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	AgentConfig   *AgentConfig
}

type AppConfig struct {
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	Debug             bool   `envconfig:"DEBUG" default:"false"`
	LogFile           string `envconfig:"LOG_FILE" default:"logs/agent.log"`
	LogFileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"10"`
	LogFileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"7"`
	LogFileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"7"`
	LogFileCompress   bool   `envconfig:"LOG_FILE_COMPRESS" default:"true"`
	TraceFile         string `envconfig:"TRACE_FILE" default:"logs/trace.json"`
}

type AIConfig struct {
	APIKey         string        `envconfig:"AI_API_KEY" required:"true"`
	Model          string        `envconfig:"AI_MODEL" default:"claude-sonnet-4-20250514"`
	BaseURL        string        `envconfig:"AI_BASE_URL" default:"https://api.anthropic.com"`
	MaxTokens      int           `envconfig:"AI_MAX_TOKENS" default:"1024"`
	Temperature    float64       `envconfig:"AI_TEMPERATURE" default:"0.1"`
	RequestTimeout time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"30s"`
}

type BrowserConfig struct {
	Headless          bool          `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo            int           `envconfig:"BROWSER_SLOW_MO" default:"100"`
	Timeout           int           `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	FindTimeout       int           `envconfig:"BROWSER_FIND_TIMEOUT" default:"5000"`
	UserDataDir       string        `envconfig:"BROWSER_USER_DATA_DIR" default:""`
	WindowWidth       int           `envconfig:"BROWSER_WINDOW_WIDTH" default:"1920"`
	WindowHeight      int           `envconfig:"BROWSER_WINDOW_HEIGHT" default:"1080"`
	ScreenshotDir     string        `envconfig:"BROWSER_SCREENSHOT_DIR" default:"screenshots"`
	StartupRetries    int           `envconfig:"BROWSER_STARTUP_RETRIES" default:"3"`
	StartupRetryDelay time.Duration `envconfig:"BROWSER_STARTUP_RETRY_DELAY" default:"2s"`
}

type AgentConfig struct {
	MaxAttempts    int           `envconfig:"AGENT_MAX_ATTEMPTS" default:"3"`
	BackoffMin     time.Duration `envconfig:"AGENT_BACKOFF_MIN" default:"4s"`
	BackoffMax     time.Duration `envconfig:"AGENT_BACKOFF_MAX" default:"10s"`
	StepDelay      time.Duration `envconfig:"AGENT_STEP_DELAY" default:"500ms"`
	StepRetryDelay time.Duration `envconfig:"AGENT_STEP_RETRY_DELAY" default:"1s"`
	RecoveryWait   time.Duration `envconfig:"AGENT_RECOVERY_WAIT" default:"2s"`
	HistorySize    int           `envconfig:"AGENT_HISTORY_SIZE" default:"10"`
	ElementLimit   int           `envconfig:"AGENT_ELEMENT_LIMIT" default:"20"`
	EscalationMode string        `envconfig:"AGENT_ESCALATION_MODE" default:"console"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
