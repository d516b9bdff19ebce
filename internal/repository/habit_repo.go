package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	events "habittracker/contracts/mq"
	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/pkg/dberr"
	"habittracker/pkg/metrics"
	"habittracker/pkg/outbox"
	"habittracker/pkg/trace"
)

const backendPostgres = "postgres"

type HabitRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

// CreateHabit inserts h and fills in h.ID. A habit.created event is queued
// in the same transaction.
func (r *HabitRepository) CreateHabit(ctx context.Context, h *model.Habit) error {
	defer observe("create_habit", time.Now())

	r.logger.Debug("Inserting habit",
		zap.Int64("user_id", h.UserID),
		zap.String("name", h.Name),
		zap.Int("target_per_week", h.TargetPerWeek),
	)

	query := `
        INSERT INTO habits (user_id, name, target_per_week, created)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			h.UserID,
			h.Name,
			h.TargetPerWeek,
			h.Created,
		).Scan(&h.ID); err != nil {
			return err
		}

		return outbox.InsertEventInTx(ctx, tx, r.outbox,
			events.AggregateHabit, &h.ID, events.RoutingHabitCreated,
			events.HabitCreatedPayload{
				HabitID:       h.ID,
				UserID:        h.UserID,
				Name:          h.Name,
				TargetPerWeek: h.TargetPerWeek,
				Created:       calendar.Format(h.Created),
				TraceID:       trace.FromContext(ctx),
			},
		)
	})
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return dberr.Classify("create habit", err)
	}

	r.logger.Info("Habit inserted successfully",
		zap.Int64("id", h.ID),
		zap.Int64("user_id", h.UserID),
	)
	return nil
}

func (r *HabitRepository) GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error) {
	defer observe("get_habit", time.Now())

	query := `
        SELECT id, user_id, name, target_per_week, created
        FROM habits
        WHERE id = $1 AND user_id = $2
    `
	var h model.Habit
	err := r.db.QueryRow(ctx, query, habitID, userID).Scan(
		&h.ID,
		&h.UserID,
		&h.Name,
		&h.TargetPerWeek,
		&h.Created,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("Failed to get habit", zap.Int64("habit_id", habitID), zap.Error(err))
		}
		return nil, dberr.Classify("get habit", err)
	}
	return &h, nil
}

func (r *HabitRepository) ListHabits(ctx context.Context, userID int64) ([]model.Habit, error) {
	defer observe("list_habits", time.Now())

	r.logger.Debug("Listing habits for user", zap.Int64("user_id", userID))

	query := `
        SELECT id, user_id, name, target_per_week, created
        FROM habits
        WHERE user_id = $1
        ORDER BY id ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, dberr.Classify("list habits", err)
	}
	defer rows.Close()

	habits := []model.Habit{}
	for rows.Next() {
		var h model.Habit
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.Name,
			&h.TargetPerWeek,
			&h.Created,
		); err != nil {
			r.logger.Error("Failed to scan habit", zap.Error(err))
			return nil, dberr.Classify("list habits", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Classify("list habits", err)
	}

	r.logger.Debug("Listed habits",
		zap.Int64("user_id", userID),
		zap.Int("count", len(habits)),
	)
	return habits, nil
}

// DeleteHabit removes the habit; habit_records rows go with it through the
// foreign key cascade.
func (r *HabitRepository) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	defer observe("delete_habit", time.Now())

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM habits WHERE id = $1 AND user_id = $2`,
			habitID, userID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrNotFound
		}

		return outbox.InsertEventInTx(ctx, tx, r.outbox,
			events.AggregateHabit, &habitID, events.RoutingHabitDeleted,
			events.HabitDeletedPayload{
				HabitID: habitID,
				UserID:  userID,
				TraceID: trace.FromContext(ctx),
			},
		)
	})
	if err != nil {
		if !apperr.IsNotFound(err) {
			r.logger.Error("Failed to delete habit", zap.Int64("habit_id", habitID), zap.Error(err))
		}
		return dberr.Classify("delete habit", err)
	}

	r.logger.Info("Habit deleted",
		zap.Int64("id", habitID),
		zap.Int64("user_id", userID),
	)
	return nil
}

func observe(operation string, start time.Time) {
	metrics.RecordDBQueryDuration(operation, backendPostgres, time.Since(start))
}
