// Package events defines event types and structures for expense
// lifecycle notifications. Consumers such as notification or reporting
// services subscribe to these; the approval engine only publishes.
package events

import "time"

type EventType string

// Topic carries every expense lifecycle event.
const Topic = "expensa.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExpenseSubmittedEvent EventType = "expense.submitted"
	DecisionRecordedEvent EventType = "expense.decision.recorded"
	StageAdvancedEvent    EventType = "expense.stage.advanced"
	ExpenseApprovedEvent  EventType = "expense.approved"
	ExpenseRejectedEvent  EventType = "expense.rejected"
	ExpenseEscalatedEvent EventType = "expense.escalated"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ExpenseID string         `json:"expense_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ExpenseSubmitted is published when a new expense enters its approval
// flow (or is created with no flow to enter).
type ExpenseSubmitted struct {
	BaseEvent

	SubmitterID   string  `json:"submitter_id"`
	Amount        string  `json:"amount"`
	CurrencyCode  string  `json:"currency_code"`
	CurrentStepID *string `json:"current_step_id,omitempty"`
}

func (e ExpenseSubmitted) GetType() EventType {
	return ExpenseSubmittedEvent
}

// DecisionRecorded is published once per newly recorded decision;
// absorbed duplicate submissions do not emit it.
type DecisionRecorded struct {
	BaseEvent

	StepID     string `json:"step_id"`
	ApproverID string `json:"approver_id"`
	Decision   string `json:"decision"`
	Comment    string `json:"comment,omitempty"`
}

func (e DecisionRecorded) GetType() EventType {
	return DecisionRecordedEvent
}

// StageAdvanced is published when an expense moves to its next
// approval group while remaining pending.
type StageAdvanced struct {
	BaseEvent

	PreviousStepID string `json:"previous_step_id"`
	NextStepID     string `json:"next_step_id"`
}

func (e StageAdvanced) GetType() EventType {
	return StageAdvancedEvent
}

// ExpenseApproved is published on the transition to the Approved
// terminal state.
type ExpenseApproved struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (e ExpenseApproved) GetType() EventType {
	return ExpenseApprovedEvent
}

// ExpenseRejected is published on the transition to the Rejected
// terminal state.
type ExpenseRejected struct {
	BaseEvent

	ApproverID string `json:"approver_id"`
	Comment    string `json:"comment,omitempty"`
}

func (e ExpenseRejected) GetType() EventType {
	return ExpenseRejectedEvent
}

// ExpenseEscalated is published when an administrator force-advances
// an expense past its current group.
type ExpenseEscalated struct {
	BaseEvent

	PreviousStepID string  `json:"previous_step_id"`
	NextStepID     *string `json:"next_step_id,omitempty"` // nil when escalation finalized the expense
}

func (e ExpenseEscalated) GetType() EventType {
	return ExpenseEscalatedEvent
}
