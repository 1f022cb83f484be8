package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/expensahq/expensa/pkg/channels/gochannel"
	"github.com/expensahq/expensa/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBusRoundTrip(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)

	received := make(chan any, 1)

	err = bus.Handle(events.ExpenseApprovedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Subscribe(t.Context()))

	event := events.ExpenseApproved{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.ExpenseApprovedEvent,
			Timestamp: time.Now().UTC(),
			ExpenseID: "exp-1",
		},
		Reason: "end of flow",
	}

	require.NoError(t, bus.Publish(t.Context(), "exp-1", event))

	select {
	case got := <-received:
		approved, ok := got.(*events.ExpenseApproved)
		require.True(t, ok)
		assert.Equal(t, "exp-1", approved.ExpenseID)
		assert.Equal(t, "end of flow", approved.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHandleRejectsNilHandler(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	assert.Error(t, bus.Handle(events.ExpenseApprovedEvent, nil))
}
