package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	assert.Equal(t, ExpenseSubmittedEvent, ExpenseSubmitted{}.GetType())
	assert.Equal(t, DecisionRecordedEvent, DecisionRecorded{}.GetType())
	assert.Equal(t, StageAdvancedEvent, StageAdvanced{}.GetType())
	assert.Equal(t, ExpenseApprovedEvent, ExpenseApproved{}.GetType())
	assert.Equal(t, ExpenseRejectedEvent, ExpenseRejected{}.GetType())
	assert.Equal(t, ExpenseEscalatedEvent, ExpenseEscalated{}.GetType())
}

func TestEscalatedEventOmitsNextStepWhenFinal(t *testing.T) {
	event := ExpenseEscalated{
		BaseEvent:      BaseEvent{ID: "e1", Type: ExpenseEscalatedEvent, ExpenseID: "exp-1"},
		PreviousStepID: "step-1",
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "next_step_id")
}
