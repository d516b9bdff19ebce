package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	events "habittracker/contracts/mq"
	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/pkg/dberr"
	"habittracker/pkg/outbox"
	"habittracker/pkg/trace"
)

// RecordRepository stores completion facts in habit_records. Every
// statement joins on habits.user_id so records of a foreign habit are
// invisible.
type RecordRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewRecordRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

func (r *RecordRepository) RecordExists(ctx context.Context, userID, habitID int64, date time.Time) (bool, error) {
	defer observe("record_exists", time.Now())

	query := `
        SELECT EXISTS (
            SELECT 1
            FROM habit_records r
            JOIN habits h ON h.id = r.habit_id
            WHERE r.habit_id = $1 AND h.user_id = $2 AND r.date = $3
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, habitID, userID, date).Scan(&exists); err != nil {
		r.logger.Error("Failed to check record", zap.Int64("habit_id", habitID), zap.Error(err))
		return false, dberr.Classify("record exists", err)
	}
	return exists, nil
}

// CreateRecord inserts the (habit, date) fact. The primary key decides
// between concurrent writers: the loser sees apperr.ErrConflict.
func (r *RecordRepository) CreateRecord(ctx context.Context, userID, habitID int64, date time.Time) error {
	defer observe("create_record", time.Now())

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            INSERT INTO habit_records (habit_id, date)
            SELECT id, $3 FROM habits WHERE id = $1 AND user_id = $2
            ON CONFLICT (habit_id, date) DO NOTHING
        `, habitID, userID, date)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.explainNoInsert(ctx, tx, userID, habitID)
		}

		return outbox.InsertEventInTx(ctx, tx, r.outbox,
			events.AggregateHabit, &habitID, events.RoutingCompletionCreated,
			completionPayload(ctx, userID, habitID, date, true),
		)
	})
	if err != nil {
		if !apperr.IsConflict(err) && !apperr.IsNotFound(err) {
			r.logger.Error("Failed to create record", zap.Int64("habit_id", habitID), zap.Error(err))
		}
		return dberr.Classify("create record", err)
	}

	r.logger.Debug("Record created",
		zap.Int64("habit_id", habitID),
		zap.String("date", calendar.Format(date)),
	)
	return nil
}

// explainNoInsert tells a missing or foreign habit from an existing record.
func (r *RecordRepository) explainNoInsert(ctx context.Context, tx pgx.Tx, userID, habitID int64) error {
	var owned bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM habits WHERE id = $1 AND user_id = $2)`,
		habitID, userID,
	).Scan(&owned)
	if err != nil {
		return err
	}
	if !owned {
		return apperr.ErrNotFound
	}
	return apperr.ErrConflict
}

func (r *RecordRepository) DeleteRecord(ctx context.Context, userID, habitID int64, date time.Time) error {
	defer observe("delete_record", time.Now())

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            DELETE FROM habit_records r
            USING habits h
            WHERE h.id = r.habit_id AND r.habit_id = $1 AND h.user_id = $2 AND r.date = $3
        `, habitID, userID, date)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}

		return outbox.InsertEventInTx(ctx, tx, r.outbox,
			events.AggregateHabit, &habitID, events.RoutingCompletionDeleted,
			completionPayload(ctx, userID, habitID, date, false),
		)
	})
	if err != nil {
		if !apperr.IsNotFound(err) {
			r.logger.Error("Failed to delete record", zap.Int64("habit_id", habitID), zap.Error(err))
		}
		return dberr.Classify("delete record", err)
	}

	r.logger.Debug("Record deleted",
		zap.Int64("habit_id", habitID),
		zap.String("date", calendar.Format(date)),
	)
	return nil
}

func (r *RecordRepository) ListRecordDates(ctx context.Context, userID, habitID int64) ([]time.Time, error) {
	defer observe("list_record_dates", time.Now())

	return r.queryDates(ctx, "list record dates", `
        SELECT r.date
        FROM habit_records r
        JOIN habits h ON h.id = r.habit_id
        WHERE r.habit_id = $1 AND h.user_id = $2
        ORDER BY r.date ASC
    `, habitID, userID)
}

func (r *RecordRepository) ListRecordDatesBetween(ctx context.Context, userID, habitID int64, from, to time.Time) ([]time.Time, error) {
	defer observe("list_record_dates_between", time.Now())

	return r.queryDates(ctx, "list record dates between", `
        SELECT r.date
        FROM habit_records r
        JOIN habits h ON h.id = r.habit_id
        WHERE r.habit_id = $1 AND h.user_id = $2 AND r.date BETWEEN $3 AND $4
        ORDER BY r.date ASC
    `, habitID, userID, from, to)
}

func (r *RecordRepository) queryDates(ctx context.Context, op, query string, args ...any) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query record dates", zap.String("op", op), zap.Error(err))
		return nil, dberr.Classify(op, err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, dberr.Classify(op, err)
		}
		dates = append(dates, calendar.Normalize(d))
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Classify(op, err)
	}
	return dates, nil
}

func completionPayload(ctx context.Context, userID, habitID int64, date time.Time, completed bool) events.CompletionChangedPayload {
	return events.CompletionChangedPayload{
		HabitID:   habitID,
		UserID:    userID,
		Date:      calendar.Format(date),
		Completed: completed,
		TraceID:   trace.FromContext(ctx),
	}
}
