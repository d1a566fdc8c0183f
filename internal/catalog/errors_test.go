package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchErrorUnwrap(t *testing.T) {
	t.Parallel()

	status := &StatusError{URL: "https://example.com/p/a", Code: 500}
	err := fmt.Errorf("listing: %w", &FetchError{URL: status.URL, Attempts: 3, Err: status})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, 3, fetchErr.Attempts)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 500, statusErr.Code)
	require.Contains(t, err.Error(), "Internal Server Error")

	wrapped := &FetchError{URL: "u", Attempts: 1, Err: context.Canceled}
	require.True(t, errors.Is(wrapped, context.Canceled))
}

func TestDateJSON(t *testing.T) {
	t.Parallel()

	d := NewDate(2023, 5, 17)
	raw, err := d.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"2023-05-17"`, string(raw))

	var parsed Date
	require.NoError(t, parsed.UnmarshalJSON([]byte(`"2024-02-29"`)))
	require.Equal(t, "2024-02-29", parsed.String())

	require.Error(t, parsed.UnmarshalJSON([]byte(`"2023-02-30"`)))
}

func TestGameUpdateApply(t *testing.T) {
	t.Parallel()

	desc := "old"
	g := Game{ID: 1, Slug: "a", Title: "A", Description: &desc}
	title := "New"
	got := GameUpdate{Title: &title}.Apply(g)
	require.Equal(t, "New", got.Title)
	require.Equal(t, &desc, got.Description)
	require.Equal(t, "a", got.Slug)
}

func TestEntityKind(t *testing.T) {
	t.Parallel()

	require.True(t, KindPublisher.HasWebsite())
	require.False(t, KindGenre.HasWebsite())
	require.True(t, KindPlatform.Valid())
	require.False(t, EntityKind("stores").Valid())
	require.True(t, RunStatusFailed.Terminal())
	require.False(t, RunStatusRunning.Terminal())
}
