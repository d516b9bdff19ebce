package mq

// Routing keys on the events exchange
const (
	RoutingHabitCreated      = "habit.created"
	RoutingHabitDeleted      = "habit.deleted"
	RoutingCompletionCreated = "habit.completion.created"
	RoutingCompletionDeleted = "habit.completion.deleted"
	AggregateHabit           = "habit"
)

type HabitCreatedPayload struct {
	HabitID       int64  `json:"habit_id"`
	UserID        int64  `json:"user_id"`
	Name          string `json:"name"`
	TargetPerWeek int    `json:"target_per_week"`
	Created       string `json:"created"` // YYYY-MM-DD
	TraceID       string `json:"trace_id,omitempty"`
}

type HabitDeletedPayload struct {
	HabitID int64  `json:"habit_id"`
	UserID  int64  `json:"user_id"`
	TraceID string `json:"trace_id,omitempty"`
}

// CompletionChangedPayload is published for both habit.completion.created
// and habit.completion.deleted; Completed tells them apart on the consumer side.
type CompletionChangedPayload struct {
	HabitID   int64  `json:"habit_id"`
	UserID    int64  `json:"user_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Completed bool   `json:"completed"`
	TraceID   string `json:"trace_id,omitempty"`
}
