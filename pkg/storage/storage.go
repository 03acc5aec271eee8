package storage

import (
	"context"

	"github.com/mosajjal/alertmailer/pkg/models"
)

// StorageBackend defines the interface for notification archives
type StorageBackend interface {
	// Store saves rendered notifications
	Store(ctx context.Context, notifications []*models.Notification) error

	// Close cleans up resources
	Close() error
}

// StorageConfig holds common storage configuration
type StorageConfig struct {
	Provider string // s3
	URL      string
}
