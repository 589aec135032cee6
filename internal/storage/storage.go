// Package storage provides the request history interface and implementations.
package storage

import (
	"context"
	"time"

	"github.com/mandalnilabja/chatrelay/internal/storage/models"
	"github.com/mandalnilabja/chatrelay/internal/storage/sqlite"
)

// Re-export types from models package for convenience
type (
	RequestLog = models.RequestLog
	LogFilter  = models.LogFilter
)

// Re-export errors from sqlite package
var (
	ErrStorageClosed = sqlite.ErrStorageClosed
	ErrInvalidInput  = sqlite.ErrInvalidInput
)

// Recorder accepts request logs. The relay only needs this half.
type Recorder interface {
	LogRequest(ctx context.Context, log *models.RequestLog) error
}

// Storage defines the interface for the request history store
type Storage interface {
	Recorder

	GetRequestLogs(ctx context.Context, filter models.LogFilter) ([]*models.RequestLog, error)
	DeleteRequestLogs(ctx context.Context, olderThan time.Time) (int64, error)

	Close() error
}

// NewSQLiteStorage creates a new SQLite storage instance
// This is the main factory function for creating storage
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return sqlite.New(dbPath)
}
