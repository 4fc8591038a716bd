package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"event-registration/internal/util"
)

type Config struct {
	HTTPAddr      string
	BasePublicURL string

	ParticipantsFile string
	ResultsFile      string
	AudioDir         string
	MaxAudioBytes    int64
	UniqueRegNo      bool

	AdminUsername string
	AdminPassword string // plain or bcrypt hash
	SessionSecret string

	BannedTerms           []string
	SpeechCredentialsFile string
	SpeechLanguage        string

	TelegramToken string
	AdminTGIDs    map[int64]bool

	SpreadsheetID            string
	GoogleServiceAccountJSON string

	LogLevel slog.Level
}

func FromEnv() (Config, error) {
	var c Config
	c.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	c.BasePublicURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BASE_PUBLIC_URL")), "/")

	c.ParticipantsFile = envOr("PARTICIPANTS_FILE", "data/participants.csv")
	c.ResultsFile = envOr("RESULTS_FILE", "data/results.csv")
	c.AudioDir = envOr("AUDIO_DIR", "uploads/audio_files")
	c.UniqueRegNo = util.NormalizeBool(os.Getenv("UNIQUE_REG_NO"))

	c.MaxAudioBytes = 20 << 20
	if raw := strings.TrimSpace(os.Getenv("MAX_AUDIO_BYTES")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			return c, fmt.Errorf("MAX_AUDIO_BYTES must be a positive integer, got %q", raw)
		}
		c.MaxAudioBytes = v
	}

	c.AdminUsername = envOr("ADMIN_USERNAME", "admin")
	c.AdminPassword = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH"))
	if c.AdminPassword == "" {
		c.AdminPassword = strings.TrimSpace(os.Getenv("ADMIN_PASSWORD"))
	}
	if c.AdminPassword == "" {
		return c, fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is empty")
	}
	c.SessionSecret = strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if c.SessionSecret == "" {
		c.SessionSecret = "change-me"
	}

	c.BannedTerms = splitList(os.Getenv("BANNED_TERMS"))
	c.SpeechCredentialsFile = strings.TrimSpace(os.Getenv("SPEECH_CREDENTIALS_FILE"))
	c.SpeechLanguage = envOr("SPEECH_LANGUAGE", "en-US")

	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.AdminTGIDs = parseAdminIDs(os.Getenv("ADMIN_TG_IDS"))

	c.SpreadsheetID = strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	c.GoogleServiceAccountJSON = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	if (c.SpreadsheetID == "") != (c.GoogleServiceAccountJSON == "") {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID and GOOGLE_SERVICE_ACCOUNT_JSON must be set together")
	}

	if err := c.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return c, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return c, nil
}

// SheetsEnabled reports whether the spreadsheet mirror is configured.
func (c Config) SheetsEnabled() bool {
	return c.SpreadsheetID != "" && c.GoogleServiceAccountJSON != ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	for _, p := range splitList(raw) {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		m[v] = true
	}
	return m
}
