package app

import (
	"fmt"

	"github.com/kilianp07/gridopt/config"
	"github.com/kilianp07/gridopt/core/dispatch/logging"
)

// NewLogStore opens the advance log store selected by cfg. It returns nil
// for the "none" backend.
func NewLogStore(cfg config.LoggingConfig) (logging.LogStore, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "sqlite":
		return logging.NewSQLiteStore(cfg.Path)
	case "jsonl", "":
		if cfg.MaxSizeMB > 0 {
			return logging.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return logging.NewJSONLStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown log backend %s", cfg.Backend)
	}
}
