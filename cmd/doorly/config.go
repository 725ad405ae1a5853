package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/doorly/internal/apperrors"
	"github.com/nkiryanov/doorly/internal/backend"
	"github.com/nkiryanov/doorly/internal/locale"
	"github.com/nkiryanov/doorly/internal/logger"
	"github.com/nkiryanov/doorly/internal/service/session"
)

const (
	defaultListenAddr   = "localhost:3000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the gateway will be run
	ListenAddr string

	// Environment (dev, prod). Cookies are 'Secure' in prod only
	Environment string

	// Backend REST API base url. Required
	BackendAddr string

	// Timeout of every backend request and number of retries on network errors
	BackendTimeout time.Duration
	BackendRetries int

	// Tokens expiring within this window are refreshed ahead of time
	ExpiryBuffer time.Duration

	// Supported locales, the first path segment of every page
	Locales       []string
	DefaultLocale string

	// Page renderer base url. If empty a minimal JSON page is served
	RendererAddr string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:       defaultLoggingLevel,
		ListenAddr:     defaultListenAddr,
		Environment:    defaultEnvironment,
		BackendTimeout: backend.DefaultTimeout,
		BackendRetries: 0,
		ExpiryBuffer:   session.DefaultExpiryBuffer,
		Locales:        append([]string(nil), locale.DefaultLocales...),
		DefaultLocale:  locale.DefaultLocale,
	}
}

// SecureCookies reports whether cookies get the 'Secure' attribute
func (c *Config) SecureCookies() bool {
	return c.Environment == logger.EnvProduction
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setList := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			items := make([]string, 0)
			for _, item := range strings.Split(value, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*o = items
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":      setString(&c.ListenAddr),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"BACKEND_ADDRESS":  setString(&c.BackendAddr),
		"BACKEND_TIMEOUT":  setDuration(&c.BackendTimeout),
		"BACKEND_RETRIES":  setInt(&c.BackendRetries),
		"EXPIRY_BUFFER":    setDuration(&c.ExpiryBuffer),
		"LOCALES":          setList(&c.Locales),
		"DEFAULT_LOCALE":   setString(&c.DefaultLocale),
		"RENDERER_ADDRESS": setString(&c.RendererAddr),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("doorly", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.BackendAddr, "backend", "b", c.BackendAddr, "Backend REST API base url")
	fs.DurationVarP(&c.BackendTimeout, "backend-timeout", "t", c.BackendTimeout, "Backend request timeout")
	fs.IntVarP(&c.BackendRetries, "backend-retries", "r", c.BackendRetries, "Backend request retries on network errors")
	fs.DurationVar(&c.ExpiryBuffer, "expiry-buffer", c.ExpiryBuffer, "Refresh tokens expiring within this window")
	fs.StringSliceVar(&c.Locales, "locales", c.Locales, "Supported locales")
	fs.StringVar(&c.DefaultLocale, "default-locale", c.DefaultLocale, "Locale used when nothing else matches")
	fs.StringVar(&c.RendererAddr, "renderer", c.RendererAddr, "Page renderer base url")

	return fs.Parse(args)
}

// Validate catches deployment errors before the server starts
func (c *Config) Validate() error {
	if c.BackendAddr == "" {
		return apperrors.ErrMissingBaseURL
	}
	if c.Environment != logger.EnvDevelopment && c.Environment != logger.EnvProduction {
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.BackendRetries < 0 {
		return fmt.Errorf("backend retries must not be negative, got %d", c.BackendRetries)
	}
	if c.ExpiryBuffer < 0 {
		return fmt.Errorf("expiry buffer must not be negative, got %s", c.ExpiryBuffer)
	}
	return nil
}
