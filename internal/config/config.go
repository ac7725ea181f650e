package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config содержит конфигурацию станции.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Пустой порт - строки сканера читаются из стандартного ввода.
	ScannerPort     string `env:"SCANNER_PORT"`
	ScannerBaudRate int    `env:"SCANNER_BAUD_RATE"`

	RegistryAPIKey    string        `env:"REGISTRY_API_KEY"`
	RegistryEndpoints []string      `env:"REGISTRY_ENDPOINTS" envSeparator:","`
	ProbeTimeout      time.Duration `env:"PROBE_TIMEOUT"`
	ValidateTimeout   time.Duration `env:"VALIDATE_TIMEOUT"`

	FiscalAPIURL        string          `env:"FISCAL_API_URL"`
	FiscalToken         string          `env:"FISCAL_TOKEN"`
	FiscalTaxPercent    decimal.Decimal `env:"FISCAL_TAX_PERCENT"`
	FiscalTaxSystem     int             `env:"FISCAL_TAX_SYSTEM"`
	FiscalPaymentMethod int             `env:"FISCAL_PAYMENT_METHOD"`
	FiscalCashier       string          `env:"FISCAL_CASHIER"`

	JWTSecret        string        `env:"JWT_SECRET"`
	TokenExpiration  time.Duration `env:"TOKEN_EXPIRATION"`
	OperatorLogin    string        `env:"OPERATOR_LOGIN"`
	OperatorPassword string        `env:"OPERATOR_PASSWORD"`
}

// DefaultJWTSecret используется, если секрет не задан.
const DefaultJWTSecret = "default-secret-change-in-production"

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		RunAddress:          "localhost:8080",
		LogLevel:            "info",
		ScannerBaudRate:     9600,
		ProbeTimeout:        5 * time.Second,
		ValidateTimeout:     10 * time.Second,
		FiscalTaxPercent:    decimal.NewFromInt(20),
		FiscalTaxSystem:     0,
		FiscalPaymentMethod: 1,
		FiscalCashier:       "Кассир",
		JWTSecret:           DefaultJWTSecret,
		TokenExpiration:     12 * time.Hour,
	}
}

// Load загружает конфигурацию из .env, флагов командной строки и переменных окружения.
// Приоритет: переменные окружения > флаги > значения по умолчанию.
// Переменные из .env не перекрывают уже заданные в окружении.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(os.Args[0], os.Args[1:])
}

func parse(name string, args []string) (*Config, error) {
	cfg := Default()

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "адрес и порт интерфейса оператора")
	flags.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "строка подключения к PostgreSQL")
	flags.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "уровень логирования")
	flags.StringVar(&cfg.ScannerPort, "p", cfg.ScannerPort, "COM-порт сканера")
	flags.IntVar(&cfg.ScannerBaudRate, "b", cfg.ScannerBaudRate, "скорость COM-порта сканера")
	flags.StringVar(&cfg.RegistryAPIKey, "k", cfg.RegistryAPIKey, "API-ключ реестра маркировки")
	flags.Func("e", "адреса площадок реестра через запятую", func(v string) error {
		cfg.RegistryEndpoints = splitList(v)
		return nil
	})
	flags.StringVar(&cfg.FiscalAPIURL, "f", cfg.FiscalAPIURL, "адрес API кассы")
	flags.TextVar(&cfg.FiscalTaxPercent, "tax", cfg.FiscalTaxPercent, "ставка НДС, %")
	flags.DurationVar(&cfg.TokenExpiration, "t", cfg.TokenExpiration, "время жизни токена оператора")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ScannerBaudRate <= 0 {
		return fmt.Errorf("invalid scanner baud rate %d", c.ScannerBaudRate)
	}
	if c.FiscalTaxPercent.IsNegative() {
		return fmt.Errorf("invalid tax percent %s", c.FiscalTaxPercent)
	}
	if c.ProbeTimeout <= 0 || c.ValidateTimeout <= 0 {
		return errors.New("registry timeouts must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
