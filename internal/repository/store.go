package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVersionConflict is returned when an update loses an optimistic
// concurrency race: the row's version no longer matches the one that was
// read. Callers re-read or skip.
var ErrVersionConflict = errors.New("ticket version conflict")

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// repositories work identically inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles all repositories and provides the transactional boundary for
// lifecycle operations: a ticket update and its audit-log appends commit
// together or not at all.
type Store interface {
	Tickets() TicketRepository
	AssignmentLogs() AssignmentLogRepository
	ActionLogs() ActionLogRepository
	SLARules() SLARepository
	Categories() CategoryRepository
	WithTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	pool           *pgxpool.Pool
	tickets        TicketRepository
	assignmentLogs AssignmentLogRepository
	actionLogs     ActionLogRepository
	slaRules       SLARepository
	categories     CategoryRepository
}

// NewStore builds a Store over a connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return newStore(pool, pool)
}

func newStore(pool *pgxpool.Pool, db DBTX) *pgStore {
	return &pgStore{
		pool:           pool,
		tickets:        NewTicketRepository(db),
		assignmentLogs: NewAssignmentLogRepository(db),
		actionLogs:     NewActionLogRepository(db),
		slaRules:       NewSLARepository(db),
		categories:     NewCategoryRepository(db),
	}
}

func (s *pgStore) Tickets() TicketRepository               { return s.tickets }
func (s *pgStore) AssignmentLogs() AssignmentLogRepository { return s.assignmentLogs }
func (s *pgStore) ActionLogs() ActionLogRepository         { return s.actionLogs }
func (s *pgStore) SLARules() SLARepository                 { return s.slaRules }
func (s *pgStore) Categories() CategoryRepository          { return s.categories }

// WithTx runs fn against transaction-scoped repositories. A nested call
// reuses the surrounding transaction.
func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already transaction-scoped.
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newStore(nil, tx))
	})
}
