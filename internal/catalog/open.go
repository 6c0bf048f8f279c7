package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"StoreCatalog/internal/config"
)

type StoreConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
}

func StoreConfigFrom(cfg *config.Config) StoreConfig {
	return StoreConfig{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		RedisURL:    cfg.RedisURL,
	}
}

// OpenStore picks the repository variant named by cfg.Driver.
func OpenStore(ctx context.Context, cfg StoreConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverMemory, "":
		log.Warn("using in-memory product store; data is lost on restart")
		return NewMemStore(), nil
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info("product store ready", zap.String("driver", cfg.Driver))
		return s, nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("product store ready", zap.String("driver", cfg.Driver), zap.String("path", cfg.SQLitePath))
		return s, nil
	case config.DriverRedis:
		s, err := OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		log.Info("product store ready", zap.String("driver", cfg.Driver))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
