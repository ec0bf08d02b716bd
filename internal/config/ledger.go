package config

import (
	"log"
	"strings"
	"time"
)

// Ledger backends.
const (
	BackendXLSX   = "xlsx"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// DBConfig holds the MySQL connection values for the mysql backend.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// LedgerConfig selects and tunes the ledger backend.
type LedgerConfig struct {
	Backend       string
	XLSXPath      string
	DB            DBConfig
	RetryAttempts int
	RetryBackoff  time.Duration
	RetryMaxWait  time.Duration
}

// LoadLedgerConfig reads LEDGER_* variables. The DB_* variables are only
// required when the mysql backend is selected.
func LoadLedgerConfig() LedgerConfig {
	cfg := LedgerConfig{
		Backend:       strings.ToLower(envStr("LEDGER_BACKEND", BackendXLSX)),
		XLSXPath:      envStr("LEDGER_XLSX_PATH", "data/ledger.xlsx"),
		RetryAttempts: envInt("LEDGER_RETRY_ATTEMPTS", 3),
		RetryBackoff:  envDur("LEDGER_RETRY_BACKOFF", 200*time.Millisecond),
		RetryMaxWait:  envDur("LEDGER_RETRY_MAX_BACKOFF", 2*time.Second),
	}
	switch cfg.Backend {
	case BackendXLSX, BackendMemory:
	case BackendMySQL:
		cfg.DB = DBConfig{
			User: must("DB_USER"),
			Pass: envStr("DB_PASS", ""),
			Host: must("DB_HOST"),
			Port: must("DB_PORT"),
			Name: must("DB_NAME"),
		}
	default:
		log.Fatalf("unknown LEDGER_BACKEND: %q", cfg.Backend)
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return cfg
}
