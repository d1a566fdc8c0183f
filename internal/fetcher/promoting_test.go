package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

type staticFetcher struct {
	page  catalog.Page
	err   error
	calls int
}

func (f *staticFetcher) Fetch(context.Context, string) (catalog.Page, error) {
	f.calls++
	return f.page, f.err
}

type detectorFunc func(catalog.Page) bool

func (d detectorFunc) ShouldPromote(p catalog.Page) bool { return d(p) }

func shellDetector(p catalog.Page) bool { return string(p.Body) == "shell" }

func TestPromotingKeepsReadyPage(t *testing.T) {
	t.Parallel()

	plain := &staticFetcher{page: catalog.Page{StatusCode: 200, Body: []byte("grid")}}
	rendered := &staticFetcher{}
	f := NewPromoting(plain, rendered, detectorFunc(shellDetector), nil)

	page, err := f.Fetch(context.Background(), "https://store.example.com/browse")
	require.NoError(t, err)
	require.Equal(t, "grid", string(page.Body))
	require.Zero(t, rendered.calls)
}

func TestPromotingRendersShell(t *testing.T) {
	t.Parallel()

	plain := &staticFetcher{page: catalog.Page{StatusCode: 200, Body: []byte("shell")}}
	rendered := &staticFetcher{page: catalog.Page{StatusCode: 200, Body: []byte("rendered grid")}}
	f := NewPromoting(plain, rendered, detectorFunc(shellDetector), nil)

	page, err := f.Fetch(context.Background(), "https://store.example.com/browse")
	require.NoError(t, err)
	require.Equal(t, "rendered grid", string(page.Body))
	require.Equal(t, 1, rendered.calls)
}

func TestPromotingFallsBackWhenRenderFails(t *testing.T) {
	t.Parallel()

	plain := &staticFetcher{page: catalog.Page{StatusCode: 200, Body: []byte("shell")}}
	rendered := &staticFetcher{err: errors.New("chrome missing")}
	f := NewPromoting(plain, rendered, detectorFunc(shellDetector), nil)

	page, err := f.Fetch(context.Background(), "https://store.example.com/browse")
	require.NoError(t, err)
	require.Equal(t, "shell", string(page.Body))
}

func TestPromotingPropagatesPrimaryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial failed")
	rendered := &staticFetcher{}
	f := NewPromoting(&staticFetcher{err: boom}, rendered, detectorFunc(shellDetector), nil)

	_, err := f.Fetch(context.Background(), "https://store.example.com/browse")
	require.ErrorIs(t, err, boom)
	require.Zero(t, rendered.calls)
}
