package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository groups the resource repositories over one Executor.
type Repository struct {
	exec *Executor
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	exec, err := NewExecutor(pool)
	if err != nil {
		return nil, fmt.Errorf("postgres repository: %w", err)
	}
	return &Repository{exec: exec}, nil
}

func (r *Repository) Executor() *Executor {
	return r.exec
}

func (r *Repository) Users() *UserRepository {
	return &UserRepository{exec: r.exec}
}

func (r *Repository) Events() *EventRepository {
	return &EventRepository{exec: r.exec}
}

func (r *Repository) Registrations() *RegistrationRepository {
	return &RegistrationRepository{exec: r.exec}
}
