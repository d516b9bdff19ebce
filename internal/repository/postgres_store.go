package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habittracker/pkg/dberr"
	"habittracker/pkg/outbox"
)

// PostgresStore is the production Store. Every mutation also queues an
// outbox event in the same transaction.
type PostgresStore struct {
	*HabitRepository
	*RecordRepository
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	outboxRepo := outbox.NewRepository(db)
	return &PostgresStore{
		HabitRepository:  NewHabitRepository(db, outboxRepo, logger),
		RecordRepository: NewRecordRepository(db, outboxRepo, logger),
		db:               db,
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return dberr.Classify("ping", s.db.Ping(ctx))
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
