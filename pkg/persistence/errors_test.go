package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpenseErrorWrapping(t *testing.T) {
	err := NewExpenseError("GetByID", "exp-1", ErrExpenseNotFound)

	assert.Contains(t, err.Error(), "GetByID")
	assert.Contains(t, err.Error(), "exp-1")
	assert.True(t, errors.Is(err, ErrExpenseNotFound))
	assert.True(t, IsExpenseNotFound(err))
}

func TestStepErrorWrapping(t *testing.T) {
	err := &StepError{Op: "GetStep", FlowID: "flow-1", StepID: "step-1", Err: ErrStepNotFound}

	assert.Contains(t, err.Error(), "step-1")
	assert.Contains(t, err.Error(), "flow-1")
	assert.True(t, IsStepNotFound(err))

	bare := &StepError{Op: "GetStep", StepID: "step-2", Err: ErrStepNotFound}
	assert.NotContains(t, bare.Error(), "flow")
}

func TestIsHelpersRejectOtherErrors(t *testing.T) {
	other := fmt.Errorf("wrapped: %w", ErrUserNotFound)

	assert.True(t, IsUserNotFound(other))
	assert.False(t, IsExpenseNotFound(other))
	assert.False(t, IsFlowNotFound(other))
	assert.False(t, IsRuleNotFound(other))
}
