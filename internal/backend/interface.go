package backend

import (
	"context"

	"recur/internal/amqp"
	"recur/internal/services"
)

// Store is a persistence backend the ledger and the renewal notifier share.
type Store interface {
	services.Store
	services.RenewalStore
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the opened store, the optional broker wiring and a
// cleanup that releases both.
type BackendResult struct {
	Store Store
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP *amqp.Client
	// Publisher announces expense writes; nil without a broker.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// AMQP is optional for every backend
	AMQPURL           string
	AMQPExchange      string
	AMQPExpenseQueue  string
	AMQPReminderQueue string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
