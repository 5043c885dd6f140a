package stores

import (
	"context"
	"errors"
	"time"

	"github.com/milestoner/milestoner/pkg/engine"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// RunStatus represents the status of a layout run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// EventLevel represents the severity level of an event
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Run is one timeline laid out from one input file.
type Run struct {
	ID            string     `json:"id"`
	Timeline      string     `json:"timeline"`
	InputPath     string     `json:"input_path"`
	OutputPath    string     `json:"output_path"`
	Format        string     `json:"format"`
	Status        RunStatus  `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         *string    `json:"error,omitempty"`
	PlanID        *string    `json:"plan_id,omitempty"`
	PlanCreatedAt *time.Time `json:"plan_created_at,omitempty"`
	Summary       string     `json:"summary"` // JSON blob
	Config        string     `json:"config"`  // JSON blob of the timeline parameters
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DrawOpRecord is one stored plan operation.
type DrawOpRecord struct {
	ID        int64         `json:"id"`
	RunID     string        `json:"run_id"`
	Seq       int           `json:"seq"`
	Kind      engine.OpKind `json:"kind"`
	Milestone int           `json:"milestone"`
	Category  string        `json:"category"`
	Payload   string        `json:"payload"` // JSON blob
}

// Event represents an append-only log event
type Event struct {
	ID        int64      `json:"id"`
	RunID     *string    `json:"run_id,omitempty"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Details   *string    `json:"details,omitempty"` // JSON blob
	Timestamp time.Time  `json:"timestamp"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg *string) error
	UpdateRunOutput(ctx context.Context, id, outputPath, format string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, timeline string, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Plan operations
	SaveDrawPlan(ctx context.Context, runID string, plan *engine.DrawPlan) error
	LoadDrawPlan(ctx context.Context, runID string) (*engine.DrawPlan, error)
	ListDrawOps(ctx context.Context, runID string) ([]*DrawOpRecord, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, runID *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
