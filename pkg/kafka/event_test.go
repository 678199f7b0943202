package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]any{"visitor_id": "visitor-1", "item_count": 3}

	event, err := NewEvent("storefront.cart.updated", "visitor-1", "cart", "storefront", payload)

	require.NoError(t, err)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "storefront.cart.updated", event.EventType)
	assert.Equal(t, "visitor-1", event.AggregateID)
	assert.Equal(t, "cart", event.AggregateType)
	assert.Equal(t, "storefront", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, "visitor-1", decoded["visitor_id"])
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("x", "y", "z", "s", make(chan int))
	assert.Error(t, err)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	event, err := NewEvent("storefront.cart.cleared", "visitor-1", "cart", "storefront", nil)
	require.NoError(t, err)

	event.WithCorrelationID("req-42")

	data, err := event.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "req-42")
}
