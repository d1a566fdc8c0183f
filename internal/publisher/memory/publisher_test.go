package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

func TestPublisherRecordsEncodedEvents(t *testing.T) {
	t.Parallel()

	pub := New(nil)
	event := catalog.RunEvent{
		RunAt:      time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		ListingURL: "https://store.example.com/browse",
		Created:    1,
		Total:      2,
	}
	id, err := pub.Publish(context.Background(), "catalog-runs", event)
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "other", map[string]int{"n": 1})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "catalog-runs", msgs[0].Topic)
	require.JSONEq(t, `{
		"run_at": "2024-05-06T07:08:09Z",
		"listing_url": "https://store.example.com/browse",
		"created": 1, "updated": 0, "total": 2, "degraded": 0
	}`, string(msgs[0].Data))

	msgs[0].Topic = "modified"
	require.Equal(t, "catalog-runs", pub.Messages()[0].Topic)
}

func TestPublisherRejectsBadInput(t *testing.T) {
	t.Parallel()

	pub := New(nil)
	_, err := pub.Publish(context.Background(), "", "x")
	require.Error(t, err)
	_, err = pub.Publish(context.Background(), "t", make(chan int))
	require.Error(t, err)
	require.Empty(t, pub.Messages())
}
