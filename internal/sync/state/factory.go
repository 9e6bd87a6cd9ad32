package state

import (
	"context"
	"fmt"

	"github.com/bookwell/customer-sync/internal/config"
	"github.com/bookwell/customer-sync/internal/db"
	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/status"
)

// NewService creates a state service from configuration. A configured
// database takes precedence; otherwise state is kept in a local JSON
// file. The returned cleanup function releases the backing store.
func NewService(ctx context.Context, cfg *config.Config) (Service, func(), error) {
	if cfg.Database != nil {
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		logger.Info("Using database-backed sync state")
		return NewDBStateService(conn.Pool), conn.Close, nil
	}

	filePath := cfg.GetStateFilePath()
	logger.Infof("Using file-backed sync state at %s", filePath)

	service := NewFileStateService(status.NewFileStatePersistence(filePath))
	return service, func() {}, nil
}
