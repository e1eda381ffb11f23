package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery state of an outbox task.
type OutboxStatus string

// Possible outbox status values. Pending and processing may alternate;
// completed and failed are terminal.
const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxAction is the operation requested of the external system.
type OutboxAction string

// Supported outbox actions
const (
	OutboxActionUpsert OutboxAction = "upsert"
	OutboxActionDelete OutboxAction = "delete"
)

// Tracked entity types
const (
	EntityTypeMentor = "mentor"
	EntityTypeMentee = "mentee"
)

// Outbox task validation errors
var (
	ErrEmptyOutboxTaskID     = errors.New("outbox task ID cannot be empty")
	ErrEmptyOutboxEntityType = errors.New("outbox entity type cannot be empty")
	ErrEmptyOutboxEntityID   = errors.New("outbox entity ID cannot be empty")
	ErrInvalidOutboxAction   = fmt.Errorf("%w: invalid outbox action", ErrValidation)
	ErrInvalidOutboxStatus   = fmt.Errorf("%w: invalid outbox status", ErrValidation)
)

// OutboxTask is a durable request to synchronize one entity with the external system.
// ClaimedBy and ClaimedAt form the claim token held by the worker processing it.
type OutboxTask struct {
	ID           uuid.UUID       `json:"id"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Action       OutboxAction    `json:"action"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Status       OutboxStatus    `json:"status"`
	Attempts     int             `json:"attempts"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ClaimedBy    string          `json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time      `json:"claimed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewOutboxTask creates a pending task.
func NewOutboxTask(entityType, entityID string, action OutboxAction, payload json.RawMessage) (*OutboxTask, error) {
	now := time.Now().UTC()
	task := &OutboxTask{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Payload:    payload,
		Status:     OutboxStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the task has valid data.
func (t *OutboxTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyOutboxTaskID
	}
	if t.EntityType == "" {
		return ErrEmptyOutboxEntityType
	}
	if t.EntityID == "" {
		return ErrEmptyOutboxEntityID
	}
	if t.Action != OutboxActionUpsert && t.Action != OutboxActionDelete {
		return ErrInvalidOutboxAction
	}
	switch t.Status {
	case OutboxStatusPending, OutboxStatusProcessing, OutboxStatusCompleted, OutboxStatusFailed:
	default:
		return ErrInvalidOutboxStatus
	}
	return nil
}

// IsTerminal reports whether the task will never be picked up again.
func (t *OutboxTask) IsTerminal() bool {
	return t.Status == OutboxStatusCompleted || t.Status == OutboxStatusFailed
}

// Claim moves a pending task to processing on behalf of workerID.
func (t *OutboxTask) Claim(workerID string, now time.Time) error {
	if t.Status != OutboxStatusPending {
		return fmt.Errorf("%w: cannot claim task in %s", ErrInvalidOutboxTransition, t.Status)
	}
	claimedAt := now.UTC()
	t.Status = OutboxStatusProcessing
	t.ClaimedBy = workerID
	t.ClaimedAt = &claimedAt
	t.UpdatedAt = claimedAt
	return nil
}

// Complete records a successful delivery by the claiming worker.
func (t *OutboxTask) Complete(workerID string, now time.Time) error {
	if err := t.checkClaim(workerID); err != nil {
		return err
	}
	t.Status = OutboxStatusCompleted
	t.ErrorMessage = ""
	t.UpdatedAt = now.UTC()
	return nil
}

// Fail records a failed delivery. The attempt counter always increases;
// the task returns to pending while attempts < maxAttempts and is parked
// as failed otherwise.
func (t *OutboxTask) Fail(workerID, errorMessage string, maxAttempts int, now time.Time) error {
	if err := t.checkClaim(workerID); err != nil {
		return err
	}
	t.Attempts++
	t.ErrorMessage = errorMessage
	if t.Attempts >= maxAttempts {
		t.Status = OutboxStatusFailed
	} else {
		t.Status = OutboxStatusPending
		t.ClaimedBy = ""
		t.ClaimedAt = nil
	}
	t.UpdatedAt = now.UTC()
	return nil
}

// Release returns an abandoned processing task to pending without counting an attempt.
func (t *OutboxTask) Release(now time.Time) error {
	if t.Status != OutboxStatusProcessing {
		return fmt.Errorf("%w: cannot release task in %s", ErrInvalidOutboxTransition, t.Status)
	}
	t.Status = OutboxStatusPending
	t.ClaimedBy = ""
	t.ClaimedAt = nil
	t.UpdatedAt = now.UTC()
	return nil
}

func (t *OutboxTask) checkClaim(workerID string) error {
	if t.Status != OutboxStatusProcessing {
		return fmt.Errorf("%w: task is %s, not processing", ErrInvalidOutboxTransition, t.Status)
	}
	if t.ClaimedBy != workerID {
		return fmt.Errorf("%w: task claimed by %q, not %q", ErrInvalidOutboxTransition, t.ClaimedBy, workerID)
	}
	return nil
}
