package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/atrisk/internal/features"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	From  time.Time // created_at >= From
	To    time.Time // created_at <= To
}

// Student is a stored student record.
type Student struct {
	ID     int64
	Record features.Record
	// HasRealAnswer is set when the student answered the intent-to-quit
	// question; only such rows are usable for training.
	HasRealAnswer bool
	IsTrained     bool
	CreatedAt     time.Time
}

// StudentRepo stores students and tracks which have been trained on.
type StudentRepo interface {
	// Save stores a record and returns its ID.
	Save(ctx context.Context, rec features.Record) (int64, error)

	// Get returns one student or ErrNotFound.
	Get(ctx context.Context, id int64) (*Student, error)

	// List returns students, newest first.
	List(ctx context.Context, opts QueryOpts) ([]Student, error)

	// Untrained returns students with a real answer that no training run
	// has used yet, newest first.
	Untrained(ctx context.Context) ([]Student, error)

	// MarkTrained flags the given students as used for training.
	MarkTrained(ctx context.Context, ids []int64) error

	// Counts returns the number of stored students and of untrained ones.
	Counts(ctx context.Context) (total, untrained int, err error)
}

// Prediction is a stored inference result.
type Prediction struct {
	ID          int64
	StudentID   int64
	Prediction  int
	Probability float64
	Confidence  float64
	RiskLevel   string
	ModelUsed   string
	CreatedAt   time.Time
}

// PredictionStats summarizes all stored predictions.
type PredictionStats struct {
	Total         int
	Risk          int
	AvgConfidence float64
	ByLevel       map[string]int
}

// PredictionRepo stores inference results.
type PredictionRepo interface {
	// Save stores p and sets its ID.
	Save(ctx context.Context, p *Prediction) error

	// List returns predictions, newest first.
	List(ctx context.Context, opts QueryOpts) ([]Prediction, error)

	// ForStudent returns a student's predictions, newest first.
	ForStudent(ctx context.Context, studentID int64) ([]Prediction, error)

	// Stats aggregates every stored prediction.
	Stats(ctx context.Context) (PredictionStats, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM requests by a grouping key.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventQuery filters LLM events. The limit applies after filtering.
type EventQuery struct {
	QueryOpts
	Purpose    string
	FailedOnly bool
}

// EventRepo records and queries LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns matching events, newest first.
	QueryLLMEvents(ctx context.Context, q EventQuery) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates events per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates events per model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
