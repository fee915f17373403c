package repositories

import "context"

// Repository aggregates the stores used by the attempt service.
type Repository interface {
	// Exam catalog (read side; Create is used for seeding)
	Exam() ExamRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// User domain (read-only, backed by the identity provider)
	User() UserRepository

	// WithTransaction runs fn against a repository bound to one transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// WithReadTransaction runs fn against one read-only snapshot: every read
	// inside fn sees the same committed state.
	WithReadTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
