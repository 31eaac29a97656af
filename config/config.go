package config

import (
	"strings"
	"time"

	"github.com/pitabwire/frame/config"
)

// GrillbookConfig is the configuration of the grillbook service.
type GrillbookConfig struct {
	config.ConfigurationDefault

	// Response budget
	MaxResponseTokens int    `envDefault:"800"           env:"MAX_RESPONSE_TOKENS"`
	TokenizerModel    string `envDefault:"gpt-3.5-turbo" env:"TOKENIZER_MODEL"`

	// Dialog graph; empty selects the built-in graph.
	DialogFile      string `envDefault:""     env:"DIALOG_FILE"`
	DialogHotReload bool   `envDefault:"true" env:"DIALOG_HOT_RELOAD"`

	// Conversation sessions
	RedisURL   string        `envDefault:"redis://localhost:6379/0" env:"REDIS_URL"`
	SessionTTL time.Duration `envDefault:"30m"                      env:"SESSION_TTL"`

	// Conversation logs
	SheetsSpreadsheetID   string        `envDefault:""          env:"SHEETS_SPREADSHEET_ID"`
	SheetsRange           string        `envDefault:"Sheet1!A1" env:"SHEETS_RANGE"`
	GoogleCredentialsFile string        `envDefault:""          env:"GOOGLE_CREDENTIALS_FILE"`
	SheetsTimeout         time.Duration `envDefault:"10s"       env:"SHEETS_TIMEOUT"`
	SheetsFailThreshold   uint32        `envDefault:"3"         env:"SHEETS_CB_FAILURE_THRESHOLD"`
	SheetsResetTimeout    time.Duration `envDefault:"30s"       env:"SHEETS_CB_RESET_TIMEOUT"`
	CallLogFallbackDir    string        `envDefault:"logs"      env:"CALL_LOG_FALLBACK_DIR"`

	// Voice platform
	VoiceAgentBaseURL         string        `envDefault:"https://api.retellai.com/v1" env:"VOICE_AGENT_BASE_URL"`
	VoiceAgentAPIKey          string        `envDefault:""                            env:"VOICE_AGENT_API_KEY"`
	VoiceAgentWebhookURL      string        `envDefault:""                            env:"VOICE_AGENT_WEBHOOK_URL"`
	VoiceAgentWebhookSecret   string        `envDefault:""                            env:"VOICE_AGENT_WEBHOOK_SECRET"`
	VoiceAgentTimeout         time.Duration `envDefault:"10s"                         env:"VOICE_AGENT_TIMEOUT"`
	VoiceAgentAllowPrivateIPs bool          `envDefault:"false"                       env:"VOICE_AGENT_ALLOW_PRIVATE_IPS"`

	// REST
	RateLimitPerMinute int `envDefault:"600" env:"RATE_LIMIT_PER_MINUTE"`
}

// SheetsEnabled reports whether call logs go to a spreadsheet.
func (c *GrillbookConfig) SheetsEnabled() bool {
	return strings.TrimSpace(c.SheetsSpreadsheetID) != ""
}
