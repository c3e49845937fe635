package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Cfg struct {
	App        App
	Database   Database
	Logger     Logger
	OpenAI     OpenAI
	Gemini     Gemini
	Browser    Browser
	Selectors  Selectors
	Automation Automation
	NATS       NATS
	Migrations Migrations
}

type App struct {
	Host string
	Port string
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN - строка подключения для gorm.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.sslMode())
}

// URL - та же база в виде postgres://, его понимает golang-migrate.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.sslMode(),
	}
	return u.String()
}

func (d Database) sslMode() string {
	if d.SSLMode == "" {
		return "disable"
	}
	return d.SSLMode
}

// Enabled сообщает, настроено ли подключение к PostgreSQL.
// Без БД история запусков просто не сохраняется.
func (d Database) Enabled() bool {
	return d.Host != "" && d.Name != ""
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
}

type OpenAI struct {
	KeyAI             string
	Model             string
	MaxTokens         int
	RequestsPerMinute int
}

type Gemini struct {
	APIKey string
	Model  string
}

type Browser struct {
	Engine          string
	Display         string
	Headless        bool
	UserDataDir     string
	BrowsersPath    string
	StudioURL       string
	Timeout         time.Duration
	NavigateTimeout time.Duration
}

type Selectors struct {
	RemoteURL string
	File      string
}

type Automation struct {
	ImageTimeout      time.Duration
	VideoTimeout      time.Duration
	ImagePollInterval time.Duration
	VideoPollInterval time.Duration
	StepDelay         time.Duration
	VerifyFallback    bool
}

type NATS struct {
	URL     string
	Subject string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		App: App{
			Host: env("APP_HOST", "127.0.0.1"),
			Port: env("APP_PORT", "8080"),
		},
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
		},
		OpenAI: OpenAI{
			KeyAI:             os.Getenv("OPENAI_API_KEY"),
			Model:             env("OPENAI_MODEL", "gpt-4o"),
			MaxTokens:         envInt("OPENAI_MAX_TOKENS", 600),
			RequestsPerMinute: envInt("OPENAI_RPM", 30),
		},
		Gemini: Gemini{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  env("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Browser: Browser{
			Engine:          env("PW_ENGINE", "firefox"),
			Display:         env("DISPLAY", ":0"),
			Headless:        envBool("PW_HEADLESS"),
			UserDataDir:     env("PW_USER_DATA_DIR", "./userdata"),
			BrowsersPath:    env("PLAYWRIGHT_BROWSERS_PATH", ""),
			StudioURL:       env("STUDIO_URL", "https://labs.google/fx/tools/flow"),
			Timeout:         envDuration("PW_TIMEOUT", 30*time.Second),
			NavigateTimeout: envDuration("PW_NAVIGATE_TIMEOUT", 60*time.Second),
		},
		Selectors: Selectors{
			RemoteURL: os.Getenv("SELECTORS_URL"),
			File:      os.Getenv("SELECTORS_FILE"),
		},
		Automation: Automation{
			ImageTimeout:      envDuration("IMAGE_TIMEOUT", 180*time.Second),
			VideoTimeout:      envDuration("VIDEO_TIMEOUT", 300*time.Second),
			ImagePollInterval: envDuration("IMAGE_POLL_INTERVAL", 3*time.Second),
			VideoPollInterval: envDuration("VIDEO_POLL_INTERVAL", 5*time.Second),
			StepDelay:         envDuration("STEP_DELAY", 2*time.Second),
			VerifyFallback:    envBool("VERIFY_FALLBACK_CLICK"),
		},
		NATS: NATS{
			URL:     os.Getenv("NATS_URL"),
			Subject: env("NATS_SUBJECT", "flow.pipeline.events"),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
	}

	return cfg, nil
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}

// envDuration принимает как "90s", так и голое число секунд.
func envDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
