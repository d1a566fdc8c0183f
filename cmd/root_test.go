package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/config"
	"github.com/JakeFAU/game-catalog/internal/netdiag"
)

type fakeApp struct {
	result  catalog.PipelineResult
	err     error
	served  bool
	closed  bool
	scrapes int
}

func (f *fakeApp) Serve(context.Context) error {
	f.served = true
	return f.err
}

func (f *fakeApp) Scrape(context.Context) (catalog.PipelineResult, error) {
	f.scrapes++
	return f.result, f.err
}

func (f *fakeApp) Close() { f.closed = true }

type fakeResolver struct{ hosts []string }

func (f *fakeResolver) ResolveDebug(_ context.Context, host string) netdiag.Report {
	f.hosts = append(f.hosts, host)
	return netdiag.Report{Host: host, SystemResolution: []string{"192.0.2.1"}}
}

// swapFactories replaces the package factories for one test. Tests using it
// must not run in parallel.
func swapFactories(t *testing.T, a *fakeApp, r *fakeResolver) *config.Config {
	t.Helper()
	origApp, origResolver := newApp, newResolver
	var seen config.Config
	newApp = func(_ context.Context, cfg config.Config, _ *zap.Logger) (App, error) {
		seen = cfg
		if a == nil {
			return nil, errors.New("boom")
		}
		return a, nil
	}
	newResolver = func(cfg config.Config, _ *zap.Logger) DNSChecker {
		seen = cfg
		return r
	}
	t.Cleanup(func() { newApp, newResolver = origApp, origResolver })
	return &seen
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScrapePrintsSummary(t *testing.T) {
	a := &fakeApp{result: catalog.PipelineResult{Created: 2, Updated: 1, Total: 3}}
	swapFactories(t, a, nil)

	out, err := execute(t, "scrape")
	require.NoError(t, err)
	require.Equal(t, 1, a.scrapes)
	require.True(t, a.closed)

	var got catalog.PipelineResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, a.result, got)
}

func TestScrapeFailure(t *testing.T) {
	a := &fakeApp{err: errors.New("listing_fetch: 503")}
	swapFactories(t, a, nil)

	out, err := execute(t, "scrape")
	require.ErrorContains(t, err, "listing_fetch")
	require.Empty(t, out)
	require.True(t, a.closed)
}

func TestServeClosesApp(t *testing.T) {
	a := &fakeApp{}
	swapFactories(t, a, nil)

	_, err := execute(t, "serve")
	require.NoError(t, err)
	require.True(t, a.served)
	require.True(t, a.closed)
}

func TestAppInitFailure(t *testing.T) {
	swapFactories(t, nil, nil)

	_, err := execute(t, "serve")
	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestConfigFlagIsLoaded(t *testing.T) {
	a := &fakeApp{}
	seen := swapFactories(t, a, nil)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  development: false\nscraper:\n  concurrency: 7\n"), 0o600))

	_, err := execute(t, "scrape", "--config", path)
	require.NoError(t, err)
	require.Equal(t, 7, seen.Scraper.Concurrency)
}

func TestConfigLoadError(t *testing.T) {
	swapFactories(t, &fakeApp{}, nil)

	_, err := execute(t, "scrape", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "load config")
}

func TestDNSCheckDefaultsToBaseHost(t *testing.T) {
	r := &fakeResolver{}
	swapFactories(t, nil, r)

	out, err := execute(t, "dns-check")
	require.NoError(t, err)
	require.Equal(t, []string{"store.epicgames.com"}, r.hosts)

	var report netdiag.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "store.epicgames.com", report.Host)
	require.Equal(t, []string{"192.0.2.1"}, report.SystemResolution)
}

func TestDNSCheckExplicitHost(t *testing.T) {
	r := &fakeResolver{}
	swapFactories(t, nil, r)

	_, err := execute(t, "dns-check", "example.org")
	require.NoError(t, err)
	require.Equal(t, []string{"example.org"}, r.hosts)

	_, err = execute(t, "dns-check", "a", "b")
	require.Error(t, err)
}
