package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/apperr"
	"habittracker/internal/calendar"
	"habittracker/internal/idempotency"
	"habittracker/internal/model"
	"habittracker/internal/service"
	"habittracker/pkg/logger"
)

const (
	// UserIDKey is where AuthMiddleware puts the authenticated user id.
	UserIDKey = "user_id"

	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotency-Replayed"
)

type HabitHandler struct {
	habits  *service.HabitService
	toggles *service.ToggleService
	stats   *service.StatsService
	guard   *idempotency.Guard
	clock   *calendar.Clock
	logger  *zap.Logger
}

func NewHabitHandler(
	habits *service.HabitService,
	toggles *service.ToggleService,
	stats *service.StatsService,
	guard *idempotency.Guard,
	clock *calendar.Clock,
	logger *zap.Logger,
) *HabitHandler {
	return &HabitHandler{
		habits:  habits,
		toggles: toggles,
		stats:   stats,
		guard:   guard,
		clock:   clock,
		logger:  logger,
	}
}

type createHabitRequest struct {
	Name string `json:"name"`
	// Number, numeric string or anything else; coerced by the service.
	TargetPerWeek json.RawMessage `json:"target_per_week"`
}

// ListHabits serves the daily overview.
func (h *HabitHandler) ListHabits(c *gin.Context) {
	userID := c.GetInt64(UserIDKey)

	habits, err := h.stats.ListHabitsWithTodayStatus(c.Request.Context(), userID, h.clock.Today())
	if err != nil {
		h.respondError(c, "ListHabits", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":   calendar.Format(h.clock.Today()),
		"habits": habits,
	})
}

func (h *HabitHandler) CreateHabit(c *gin.Context) {
	userID := c.GetInt64(UserIDKey)

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit, err := h.habits.CreateHabit(c.Request.Context(), userID, req.Name, rawTarget(req.TargetPerWeek), h.clock.Today())
	if err != nil {
		h.respondError(c, "CreateHabit", err)
		return
	}

	logger.WithTrace(c.Request.Context(), h.logger).Info("CreateHabit: success",
		zap.Int64("user_id", userID),
		zap.Int64("habit_id", habit.ID),
	)
	c.JSON(http.StatusCreated, habit)
}

func (h *HabitHandler) DeleteHabit(c *gin.Context) {
	habitID, ok := h.habitID(c)
	if !ok {
		return
	}

	if err := h.habits.DeleteHabit(c.Request.Context(), c.GetInt64(UserIDKey), habitID); err != nil {
		h.respondError(c, "DeleteHabit", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Toggle flips today's completion. Retries carrying the same
// Idempotency-Key get the first outcome back instead of flipping again.
func (h *HabitHandler) Toggle(c *gin.Context) {
	habitID, ok := h.habitID(c)
	if !ok {
		return
	}
	userID := c.GetInt64(UserIDKey)
	ctx := c.Request.Context()
	today := h.clock.Today()

	completed, replayed, err := h.guard.Toggle(ctx, userID, habitID, c.GetHeader(IdempotencyKeyHeader),
		func() (bool, error) {
			return h.toggles.Toggle(ctx, userID, habitID, today)
		},
	)
	if err != nil {
		h.respondError(c, "Toggle", err)
		return
	}

	if replayed {
		c.Header(IdempotencyReplayedHeader, "true")
	}
	c.JSON(http.StatusOK, model.ToggleResult{HabitID: habitID, Date: today, Completed: completed})
}

func (h *HabitHandler) GetStatistics(c *gin.Context) {
	stats, err := h.stats.GetStatistics(c.Request.Context(), c.GetInt64(UserIDKey), h.clock.Today())
	if err != nil {
		h.respondError(c, "GetStatistics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":       calendar.Format(h.clock.Today()),
		"statistics": stats,
	})
}

func (h *HabitHandler) GetHabitStatistics(c *gin.Context) {
	habitID, ok := h.habitID(c)
	if !ok {
		return
	}

	stats, err := h.stats.GetHabitStatistics(c.Request.Context(), c.GetInt64(UserIDKey), habitID, h.clock.Today())
	if err != nil {
		h.respondError(c, "GetHabitStatistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *HabitHandler) habitID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		// An unparseable id cannot name an owned habit.
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
		return 0, false
	}
	return id, true
}

// respondError maps the error taxonomy onto HTTP statuses.
func (h *HabitHandler) respondError(c *gin.Context, op string, err error) {
	log := logger.WithTrace(c.Request.Context(), h.logger).With(
		zap.String("op", op),
		zap.Int64("user_id", c.GetInt64(UserIDKey)),
	)

	if v, ok := apperr.AsValidation(err); ok {
		log.Warn("Rejected request", zap.String("field", v.Field), zap.String("reason", v.Message))
		c.JSON(http.StatusBadRequest, gin.H{"error": v.Error(), "field": v.Field})
		return
	}

	switch {
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
	case errors.Is(err, idempotency.ErrInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.IsUnavailable(err):
		log.Error("Storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		log.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// rawTarget turns the JSON value of target_per_week into the text the
// coercion rules apply to. Strings are unquoted, numbers are kept verbatim
// and anything else becomes "" (the default).
func rawTarget(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
