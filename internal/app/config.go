package app

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"auction_watch/internal/alerts"
	"auction_watch/internal/browser"
	"auction_watch/internal/config"
	"auction_watch/internal/notifications"
	"auction_watch/internal/scrape"
	"auction_watch/internal/sheets"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads envFile (or .env when empty), then points the
// global zerolog logger at stderr with the level from LOGLEVEL.
func SetupEnvironment(envFile string) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	loadErr := godotenv.Load(files...)

	production := os.Getenv("ENV") == "production"
	log.Logger = newLogger(production)

	level, levelErr := parseLogLevel(os.Getenv("LOGLEVEL"), production)
	zerolog.SetGlobalLevel(level)
	if levelErr != nil {
		log.Warn().Err(levelErr).Str("level", level.String()).Msg("Falling back to default log level")
	}

	// logging is only usable from here on, so the env file result is reported late
	switch {
	case loadErr == nil:
		log.Debug().Str("file", envFile).Msg("Loaded environment file")
	case envFile != "":
		log.Warn().Err(loadErr).Str("file", envFile).Msg("Could not load env file; using process environment")
	default:
		log.Debug().Msg("No .env file; using process environment")
	}
}

// newLogger writes JSON with unix timestamps in production and a console
// format everywhere else.
func newLogger(production bool) zerolog.Logger {
	if production {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// parseLogLevel maps LOGLEVEL onto a zerolog level. Empty means warn in
// production and info otherwise; unknown values fall back to info.
func parseLogLevel(raw string, production bool) (zerolog.Level, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		if production {
			return zerolog.WarnLevel, nil
		}
		return zerolog.InfoLevel, nil
	case "warning":
		raw = "warn"
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown LOGLEVEL %q: %w", raw, err)
	}
	return level, nil
}

// getEnvWithDefault fetches an environment variable with a default fallback.
func getEnvWithDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnvWithDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnvWithDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}

func getPattern(key string, defaultValue *regexp.Regexp) (*regexp.Regexp, error) {
	raw := getEnvWithDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return re, nil
}

// LoadConfig reads the environment into a Config. It never exits; callers
// decide what a missing setting means.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		SpreadsheetID: getEnvWithDefault("SPREADSHEET_ID", ""),
		Resilience:    config.DefaultResilienceConfig,
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID environment variable is required")
	}

	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	defaults := sheets.DefaultLayout()
	cfg.Layout = sheets.Layout{
		Sheet:         getEnvWithDefault("SHEET_NAME", defaults.Sheet),
		KeyColumn:     strings.ToUpper(getEnvWithDefault("KEY_COLUMN", defaults.KeyColumn)),
		URLColumn:     strings.ToUpper(getEnvWithDefault("URL_COLUMN", defaults.URLColumn)),
		EndColumn:     strings.ToUpper(getEnvWithDefault("END_COLUMN", defaults.EndColumn)),
		AlertedColumn: strings.ToUpper(getEnvWithDefault("ALERTED_COLUMN", defaults.AlertedColumn)),
		EmailColumn:   strings.ToUpper(getEnvWithDefault("EMAIL_COLUMN", defaults.EmailColumn)),
		PriceColumn:   strings.ToUpper(getEnvWithDefault("PRICE_COLUMN", defaults.PriceColumn)),
		ImageColumn:   strings.ToUpper(getEnvWithDefault("IMAGE_COLUMN", defaults.ImageColumn)),
	}

	tz := getEnvWithDefault("TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg.Navigator = scrape.DefaultNavigatorConfig()
	if cfg.Navigator.LoadTimeout, err = getDuration("NAV_TIMEOUT", cfg.Navigator.LoadTimeout); err != nil {
		return nil, err
	}
	if cfg.Navigator.ListingPattern, err = getPattern("LISTING_PATTERN", cfg.Navigator.ListingPattern); err != nil {
		return nil, err
	}
	if cfg.Navigator.DetailPattern, err = getPattern("DETAIL_PATTERN", cfg.Navigator.DetailPattern); err != nil {
		return nil, err
	}

	cfg.Price = scrape.DefaultPositionalPrice()
	cfg.Image = scrape.DefaultPrioritizedImage()
	selectorTimeout, err := getDuration("SELECTOR_TIMEOUT", cfg.Price.WaitTimeout)
	if err != nil {
		return nil, err
	}
	cfg.Price.WaitTimeout = selectorTimeout
	cfg.Image.WaitTimeout = selectorTimeout
	cfg.Price.Container = getEnvWithDefault("PRICE_SELECTOR", cfg.Price.Container)
	if raw := getEnvWithDefault("IMAGE_SELECTORS", ""); raw != "" {
		cfg.Image.Selectors = splitList(raw)
	}

	if cfg.ImageMode, err = scrape.ParseImageMode(getEnvWithDefault("IMAGE_MODE", "")); err != nil {
		return nil, fmt.Errorf("invalid IMAGE_MODE: %w", err)
	}

	if cfg.AlertWindow, err = getDuration("ALERT_WINDOW", alerts.DefaultWindow); err != nil {
		return nil, err
	}
	if cfg.SkipAlerted, err = getBool("SKIP_ALERTED_ROWS", true); err != nil {
		return nil, err
	}

	port, err := strconv.Atoi(getEnvWithDefault("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SMTP = notifications.SMTPConfig{
		Host:     getEnvWithDefault("SMTP_HOST", ""),
		Port:     port,
		Username: getEnvWithDefault("SMTP_USERNAME", ""),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnvWithDefault("SMTP_FROM", getEnvWithDefault("SMTP_USERNAME", "")),
	}

	ntfyEnabled, err := getBool("NTFY_ENABLED", false)
	if err != nil {
		return nil, err
	}
	cfg.Ntfy = notifications.NtfyConfig{
		Enabled:  ntfyEnabled,
		BaseURL:  getEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
		Topic:    getEnvWithDefault("NTFY_TOPIC", "auction-watch"),
		Priority: getEnvWithDefault("NTFY_PRIORITY", "high"),
	}

	headless, err := getBool("HEADLESS", true)
	if err != nil {
		return nil, err
	}
	cfg.Browser = browser.Options{
		ExecPath:     getEnvWithDefault("CHROME_PATH", ""),
		Headless:     headless,
		UserAgent:    getEnvWithDefault("USER_AGENT", browser.DefaultUserAgent),
		ExtraHeaders: browser.DefaultHeaders(),
		Stealth:      true,
	}

	cfg.PushgatewayURL = getEnvWithDefault("PUSHGATEWAY_URL", "")
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadCredentials prefers inline GOOGLE_CREDENTIALS over the credentials file.
func loadCredentials() ([]byte, error) {
	if inline := os.Getenv("GOOGLE_CREDENTIALS"); strings.TrimSpace(inline) != "" {
		creds, err := normalizeCredentials([]byte(inline))
		if err != nil {
			return nil, fmt.Errorf("invalid GOOGLE_CREDENTIALS: %w", err)
		}
		return creds, nil
	}

	path := getEnvWithDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no GOOGLE_CREDENTIALS set and failed to read %s: %w", path, err)
	}
	creds, err := normalizeCredentials(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials file %s: %w", path, err)
	}
	return creds, nil
}

// normalizeCredentials restores real newlines in a private key that was
// flattened into a single-line environment value.
func normalizeCredentials(raw []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}
	key, ok := doc["private_key"].(string)
	if !ok || !strings.Contains(key, `\n`) {
		return raw, nil
	}
	doc["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
	return json.Marshal(doc)
}
