package catalog

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds environment-variable overrides for CLI flags and catalog paths.
type Env struct {
	// Catalog is the catalog file path.
	Catalog string `env:"TABSHARE_CATALOG"`
	// DataDir resolves relative resource and ledger paths.
	DataDir string `env:"TABSHARE_DATA_DIR"`
	// Ledger overrides the catalog's ledger path.
	Ledger string `env:"TABSHARE_LEDGER"`
	// LogLevel overrides the default log level (debug, info, warn, error).
	LogLevel string `env:"TABSHARE_LOG_LEVEL"`
}

// ParseEnv loads overrides from the environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// Apply folds the overrides into a loaded catalog.
func (e Env) Apply(c *Catalog) {
	if e.Ledger != "" {
		c.Ledger = e.Ledger
	}
}
