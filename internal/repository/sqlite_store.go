package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/model"
	"habittracker/pkg/dberr"
	"habittracker/pkg/metrics"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

const backendSQLite = "sqlite"

// SQLiteStore is the embedded Store for single-node deployments. It has the
// same ownership and uniqueness semantics as PostgresStore but queues no
// events.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and applies the schema.
// The connection runs in WAL mode with foreign keys enforced.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("SQLite store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return classifySQLite("ping", s.db.PingContext(ctx))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateHabit(ctx context.Context, h *model.Habit) error {
	defer observeSQLite("create_habit", time.Now())

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (user_id, name, target_per_week, created) VALUES (?, ?, ?, ?)`,
		h.UserID, h.Name, h.TargetPerWeek, calendar.Format(h.Created),
	)
	if err != nil {
		s.logger.Error("Failed to insert habit", zap.Error(err))
		return classifySQLite("create habit", err)
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return classifySQLite("create habit", err)
	}

	s.logger.Info("Habit inserted successfully",
		zap.Int64("id", h.ID),
		zap.Int64("user_id", h.UserID),
	)
	return nil
}

func (s *SQLiteStore) GetHabit(ctx context.Context, userID, habitID int64) (*model.Habit, error) {
	defer observeSQLite("get_habit", time.Now())

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, target_per_week, created FROM habits WHERE id = ? AND user_id = ?`,
		habitID, userID,
	)
	h, err := scanHabit(row)
	if err != nil {
		return nil, classifySQLite("get habit", err)
	}
	return h, nil
}

func (s *SQLiteStore) ListHabits(ctx context.Context, userID int64) ([]model.Habit, error) {
	defer observeSQLite("list_habits", time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, target_per_week, created FROM habits WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		s.logger.Error("Failed to list habits", zap.Error(err))
		return nil, classifySQLite("list habits", err)
	}
	defer rows.Close()

	habits := []model.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, classifySQLite("list habits", err)
		}
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite("list habits", err)
	}
	return habits, nil
}

func (s *SQLiteStore) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	defer observeSQLite("delete_habit", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	if err != nil {
		s.logger.Error("Failed to delete habit", zap.Int64("habit_id", habitID), zap.Error(err))
		return classifySQLite("delete habit", err)
	}
	if err := requireAffected(res); err != nil {
		return classifySQLite("delete habit", err)
	}

	s.logger.Info("Habit deleted", zap.Int64("id", habitID), zap.Int64("user_id", userID))
	return nil
}

func (s *SQLiteStore) RecordExists(ctx context.Context, userID, habitID int64, date time.Time) (bool, error) {
	defer observeSQLite("record_exists", time.Now())

	var exists bool
	err := s.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM habit_records r
            JOIN habits h ON h.id = r.habit_id
            WHERE r.habit_id = ? AND h.user_id = ? AND r.date = ?
        )`, habitID, userID, calendar.Format(date),
	).Scan(&exists)
	if err != nil {
		return false, classifySQLite("record exists", err)
	}
	return exists, nil
}

func (s *SQLiteStore) CreateRecord(ctx context.Context, userID, habitID int64, date time.Time) error {
	defer observeSQLite("create_record", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifySQLite("create record", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        INSERT OR IGNORE INTO habit_records (habit_id, date)
        SELECT id, ? FROM habits WHERE id = ? AND user_id = ?`,
		calendar.Format(date), habitID, userID,
	)
	if err != nil {
		return classifySQLite("create record", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return classifySQLite("create record", err)
	} else if n == 0 {
		var owned bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM habits WHERE id = ? AND user_id = ?)`, habitID, userID,
		).Scan(&owned); err != nil {
			return classifySQLite("create record", err)
		}
		if !owned {
			return fmt.Errorf("create record: %w", apperr.ErrNotFound)
		}
		return fmt.Errorf("create record: %w", apperr.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return classifySQLite("create record", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, userID, habitID int64, date time.Time) error {
	defer observeSQLite("delete_record", time.Now())

	res, err := s.db.ExecContext(ctx, `
        DELETE FROM habit_records
        WHERE habit_id = ? AND date = ?
        AND habit_id IN (SELECT id FROM habits WHERE user_id = ?)`,
		habitID, calendar.Format(date), userID,
	)
	if err != nil {
		return classifySQLite("delete record", err)
	}
	return classifySQLite("delete record", requireAffected(res))
}

func (s *SQLiteStore) ListRecordDates(ctx context.Context, userID, habitID int64) ([]time.Time, error) {
	defer observeSQLite("list_record_dates", time.Now())

	return s.queryDates(ctx, "list record dates", `
        SELECT r.date FROM habit_records r
        JOIN habits h ON h.id = r.habit_id
        WHERE r.habit_id = ? AND h.user_id = ?
        ORDER BY r.date ASC`, habitID, userID)
}

func (s *SQLiteStore) ListRecordDatesBetween(ctx context.Context, userID, habitID int64, from, to time.Time) ([]time.Time, error) {
	defer observeSQLite("list_record_dates_between", time.Now())

	// YYYY-MM-DD sorts lexically in date order.
	return s.queryDates(ctx, "list record dates between", `
        SELECT r.date FROM habit_records r
        JOIN habits h ON h.id = r.habit_id
        WHERE r.habit_id = ? AND h.user_id = ? AND r.date BETWEEN ? AND ?
        ORDER BY r.date ASC`, habitID, userID, calendar.Format(from), calendar.Format(to))
}

func (s *SQLiteStore) queryDates(ctx context.Context, op, query string, args ...any) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifySQLite(op, err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, classifySQLite(op, err)
		}
		d, err := calendar.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite(op, err)
	}
	return dates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*model.Habit, error) {
	var (
		h       model.Habit
		created string
	)
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.TargetPerWeek, &created); err != nil {
		return nil, err
	}
	day, err := calendar.Parse(created)
	if err != nil {
		return nil, err
	}
	h.Created = day
	return &h, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// classifySQLite maps sqlite3 result codes onto apperr and falls back to
// dberr.Classify for everything else.
func classifySQLite(op string, err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
		case sqliteErr.Code == sqlite3.ErrBusy,
			sqliteErr.Code == sqlite3.ErrLocked,
			sqliteErr.Code == sqlite3.ErrCantOpen,
			sqliteErr.Code == sqlite3.ErrIoErr:
			return apperr.Unavailable(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return dberr.Classify(op, err)
}

func observeSQLite(operation string, start time.Time) {
	metrics.RecordDBQueryDuration(operation, backendSQLite, time.Since(start))
}
