package outreach

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// WindowConfig configures one sliding rate-limit window.
type WindowConfig struct {
	// MaxRequests is the number of requests admitted per window.
	MaxRequests int

	// Window is the trailing duration the limit applies over.
	Window time.Duration
}

// SMTPConfig holds credentials for the SMTP mail sender adapter.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Config holds configuration for the outreach engine.
type Config struct {
	// Providers maps provider keys to their rate-limit windows.
	Providers map[string]WindowConfig

	// SendWindowStart and SendWindowEnd bound the local hours within
	// which outbound sends are permitted (inclusive start, exclusive end).
	SendWindowStart int
	SendWindowEnd   int

	// VerifyPacing is the courtesy delay between email verification
	// calls, applied in addition to provider rate limiting.
	VerifyPacing time.Duration

	// DiscoveryConcurrency bounds the contact-discovery fan-out.
	DiscoveryConcurrency int

	// TickInterval is how often the scheduler checks for due tasks.
	TickInterval time.Duration

	// TaskRetention is how long completed tasks are kept before pruning.
	TaskRetention time.Duration

	// JournalLimit caps the orchestrator's activity journal. Oldest
	// entries are pruned beyond this count.
	JournalLimit int

	// FollowUpAfter is the default delay between a send and its follow-up.
	FollowUpAfter time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// SMTP configures the optional SMTP sender adapter.
	SMTP SMTPConfig
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Providers: map[string]WindowConfig{
			ProviderMailSend:   {MaxRequests: 20, Window: time.Minute},
			ProviderMailRead:   {MaxRequests: 60, Window: time.Minute},
			ProviderContentGen: {MaxRequests: 10, Window: time.Minute},
			ProviderSheetWrite: {MaxRequests: 30, Window: time.Minute},
			ProviderVerify:     {MaxRequests: 30, Window: time.Minute},
			ProviderSocial:     {MaxRequests: 5, Window: time.Minute},
		},
		SendWindowStart:      9,
		SendWindowEnd:        17,
		VerifyPacing:         2 * time.Second,
		DiscoveryConcurrency: 4,
		TickInterval:         time.Minute,
		TaskRetention:        7 * 24 * time.Hour,
		JournalLimit:         500,
		FollowUpAfter:        3 * 24 * time.Hour,
		ShutdownTimeout:      30 * time.Second,
	}
}

// FromEnv returns DefaultConfig overridden by environment variables.
// A .env file in the working directory is loaded first if present
// (missing files are not an error).
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.SMTP.Host = os.Getenv("OUTREACH_SMTP_HOST")
	cfg.SMTP.User = os.Getenv("OUTREACH_SMTP_USER")
	cfg.SMTP.Password = os.Getenv("OUTREACH_SMTP_PASSWORD")
	cfg.SMTP.From = os.Getenv("OUTREACH_SMTP_FROM")

	if v := os.Getenv("OUTREACH_SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("outreach: invalid OUTREACH_SMTP_PORT %q: %w", v, err)
		}
		cfg.SMTP.Port = port
	}

	if v := os.Getenv("OUTREACH_SEND_WINDOW_START"); v != "" {
		h, err := parseHour(v)
		if err != nil {
			return cfg, fmt.Errorf("outreach: invalid OUTREACH_SEND_WINDOW_START: %w", err)
		}
		cfg.SendWindowStart = h
	}
	if v := os.Getenv("OUTREACH_SEND_WINDOW_END"); v != "" {
		h, err := parseHour(v)
		if err != nil {
			return cfg, fmt.Errorf("outreach: invalid OUTREACH_SEND_WINDOW_END: %w", err)
		}
		cfg.SendWindowEnd = h
	}

	if v := os.Getenv("OUTREACH_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("outreach: invalid OUTREACH_TICK_INTERVAL %q: %w", v, err)
		}
		cfg.TickInterval = d
	}

	return cfg, nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("hour %d out of range [0,23]", h)
	}
	return h, nil
}
