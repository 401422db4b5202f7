package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AppName     = "telegram-carbon-bot"
	EnvFileName = "config.env"

	DefaultDBPath         = "carbon.db"
	DefaultAllowedOrigins = "*"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	BotToken string
	AdminID  int64
	// GeminiAPIKey and OpenAIAPIKey are optional. Gemini is preferred; with
	// neither set receipts are answered with demo data.
	GeminiAPIKey string
	OpenAIAPIKey string
	DBPath       string
	// HTTPAddr enables the HTTP API when set, e.g. ":8080".
	HTTPAddr         string
	AllowedOrigins   string
	ChallengesFile   string
	DigestEnabled    bool
	OpenRegistration bool
}

// requiredEnvVars lists all environment variables that must be set for the bot to run.
var requiredEnvVars = []string{"BOT_TOKEN", "ADMIN_TELEGRAM_ID"}

// CheckRequired returns the names of required environment variables that are not set.
func CheckRequired() []string {
	var missing []string
	for _, v := range requiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	if missing := CheckRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	adminID, err := strconv.ParseInt(os.Getenv("ADMIN_TELEGRAM_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err)
	}

	digest, err := getEnvBool("DIGEST_ENABLED", true)
	if err != nil {
		return nil, err
	}
	openRegistration, err := getEnvBool("OPEN_REGISTRATION", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		BotToken:         os.Getenv("BOT_TOKEN"),
		AdminID:          adminID,
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		DBPath:           getEnv("CARBON_DB_PATH", DefaultDBPath),
		HTTPAddr:         os.Getenv("HTTP_ADDR"),
		AllowedOrigins:   getEnv("ALLOWED_ORIGINS", DefaultAllowedOrigins),
		ChallengesFile:   os.Getenv("CHALLENGES_FILE"),
		DigestEnabled:    digest,
		OpenRegistration: openRegistration,
	}, nil
}

func getEnv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getEnvBool(name string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", name, err)
	}
	return b, nil
}

// GetConfigDir returns the application's config directory, creating it if needed.
func GetConfigDir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// ConfigFilePath returns the full path to the config file.
func ConfigFilePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Variables already set in the environment win. Errors are
// ignored since the file may not exist.
func LoadEnvFile() {
	configPath, err := ConfigFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// writeEnvFile writes values to path with owner-only permissions since the
// file contains secrets.
func writeEnvFile(path string, values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content + "\n"); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
