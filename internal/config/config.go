package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	InvoiceStoreSQL      = "sql"
	InvoiceStoreDynamoDB = "dynamodb"
)

type Config struct {
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DBDriver     string `envconfig:"DB_DRIVER" default:"postgres"`
	InvoiceStore string `envconfig:"INVOICE_STORE" default:"sql"`

	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	Timezone string `envconfig:"TIMEZONE" default:"Asia/Jakarta"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	DynamoDB DynamoDB
}

// DynamoDB settings are only read when INVOICE_STORE=dynamodb. The defaults
// target a local DynamoDB, which does not validate credentials.
type DynamoDB struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"DYNAMODB_ENDPOINT"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" default:"local"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" default:"local"`
	InvoicesTable   string `envconfig:"INVOICES_TABLE" default:"invoices"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.InvoiceStore {
	case InvoiceStoreSQL, InvoiceStoreDynamoDB:
	default:
		return fmt.Errorf("unsupported INVOICE_STORE %q", c.InvoiceStore)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location is the zone used to decide what "today" means for scheduled runs.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
