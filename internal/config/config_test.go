package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		envVars       map[string]string
		wantAddress   string
		wantDBURI     string
		wantPort      string
		wantEndpoints []string
		wantSecret    string
		wantTax       decimal.Decimal
		wantTokenExp  time.Duration
	}{
		{
			name:         "default values",
			wantAddress:  "localhost:8080",
			wantSecret:   DefaultJWTSecret,
			wantTax:      decimal.NewFromInt(20),
			wantTokenExp: 12 * time.Hour,
		},
		{
			name:          "flags only",
			args:          []string{"-a", "localhost:9090", "-d", "postgresql://db", "-p", "/dev/ttyUSB0", "-e", "https://a.example, https://b.example", "-tax", "10", "-t", "36h"},
			wantAddress:   "localhost:9090",
			wantDBURI:     "postgresql://db",
			wantPort:      "/dev/ttyUSB0",
			wantEndpoints: []string{"https://a.example", "https://b.example"},
			wantSecret:    DefaultJWTSecret,
			wantTax:       decimal.NewFromInt(10),
			wantTokenExp:  36 * time.Hour,
		},
		{
			name: "env only",
			envVars: map[string]string{
				"RUN_ADDRESS":        "localhost:7070",
				"DATABASE_URI":       "postgresql://envdb",
				"SCANNER_PORT":       "COM3",
				"REGISTRY_ENDPOINTS": "https://c.example,https://d.example",
				"FISCAL_TAX_PERCENT": "0",
				"JWT_SECRET":         "env-secret",
				"TOKEN_EXPIRATION":   "48h",
			},
			wantAddress:   "localhost:7070",
			wantDBURI:     "postgresql://envdb",
			wantPort:      "COM3",
			wantEndpoints: []string{"https://c.example", "https://d.example"},
			wantSecret:    "env-secret",
			wantTax:       decimal.Zero,
			wantTokenExp:  48 * time.Hour,
		},
		{
			name: "env overrides flags",
			args: []string{"-a", "localhost:9090", "-d", "postgresql://flagdb", "-t", "72h"},
			envVars: map[string]string{
				"RUN_ADDRESS":      "localhost:6060",
				"TOKEN_EXPIRATION": "1h",
			},
			wantAddress:  "localhost:6060",
			wantDBURI:    "postgresql://flagdb",
			wantSecret:   DefaultJWTSecret,
			wantTax:      decimal.NewFromInt(20),
			wantTokenExp: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := parse("markstation", tt.args)
			if err != nil {
				t.Fatalf("parse() error = %v", err)
			}

			if cfg.RunAddress != tt.wantAddress {
				t.Errorf("RunAddress = %v, want %v", cfg.RunAddress, tt.wantAddress)
			}
			if cfg.DatabaseURI != tt.wantDBURI {
				t.Errorf("DatabaseURI = %v, want %v", cfg.DatabaseURI, tt.wantDBURI)
			}
			if cfg.ScannerPort != tt.wantPort {
				t.Errorf("ScannerPort = %v, want %v", cfg.ScannerPort, tt.wantPort)
			}
			if len(cfg.RegistryEndpoints) != len(tt.wantEndpoints) {
				t.Fatalf("RegistryEndpoints = %v, want %v", cfg.RegistryEndpoints, tt.wantEndpoints)
			}
			for i := range tt.wantEndpoints {
				if cfg.RegistryEndpoints[i] != tt.wantEndpoints[i] {
					t.Errorf("RegistryEndpoints[%d] = %v, want %v", i, cfg.RegistryEndpoints[i], tt.wantEndpoints[i])
				}
			}
			if cfg.JWTSecret != tt.wantSecret {
				t.Errorf("JWTSecret = %v, want %v", cfg.JWTSecret, tt.wantSecret)
			}
			if !cfg.FiscalTaxPercent.Equal(tt.wantTax) {
				t.Errorf("FiscalTaxPercent = %v, want %v", cfg.FiscalTaxPercent, tt.wantTax)
			}
			if cfg.TokenExpiration != tt.wantTokenExp {
				t.Errorf("TokenExpiration = %v, want %v", cfg.TokenExpiration, tt.wantTokenExp)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		envVars map[string]string
	}{
		{name: "unknown flag", args: []string{"-x"}},
		{name: "bad duration env", envVars: map[string]string{"TOKEN_EXPIRATION": "soon"}},
		{name: "zero baud rate", envVars: map[string]string{"SCANNER_BAUD_RATE": "0"}},
		{name: "negative tax", args: []string{"-tax", "-5"}},
		{name: "zero validate timeout", envVars: map[string]string{"VALIDATE_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}
			if _, err := parse("markstation", tt.args); err == nil {
				t.Error("parse() expected error")
			}
		})
	}
}
