package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/analysis"
	"github.com/azretail/chainscan/internal/coords"
	"github.com/azretail/chainscan/internal/extract"
	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/monitoring"
	"github.com/azretail/chainscan/internal/resilience"
	"github.com/azretail/chainscan/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
	})
}

func loadGazetteer() (*geo.Gazetteer, error) {
	if cfg.Geo.Gazetteer == "" {
		return geo.DefaultGazetteer(), nil
	}
	data, err := os.ReadFile(cfg.Geo.Gazetteer)
	if err != nil {
		return nil, eris.Wrap(err, "read gazetteer")
	}
	return geo.ParseGazetteer(data)
}

func newFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:        cfg.Fetch.UserAgent,
		Timeout:          cfg.Fetch.Timeout,
		Retry:            resilience.FromSettings(cfg.Fetch.MaxAttempts, cfg.Fetch.InitialBackoff, cfg.Fetch.MaxBackoff),
		RatePerSecond:    cfg.Fetch.RatePerSecond,
		Burst:            cfg.Fetch.Burst,
		HostRates:        cfg.Fetch.HostRates,
		MaxRedirects:     cfg.Resolve.MaxHops,
		CloudflareBypass: cfg.Fetch.CloudflareBypass,
	})
}

func sourceOverrides() map[string]extract.SourceConfig {
	out := make(map[string]extract.SourceConfig, len(cfg.Sources))
	for name, s := range cfg.Sources {
		out[name] = extract.SourceConfig{URL: s.URL, Timeout: s.Timeout, Disabled: s.Disabled}
	}
	return out
}

// newEngine wires the per-run objects: HTTP client, normalizer with its
// resolver cache, and city inferrer.
func newEngine(sink extract.Sink) (*extract.Engine, error) {
	sources, err := extract.MergeSources(sourceOverrides())
	if err != nil {
		return nil, err
	}
	g, err := loadGazetteer()
	if err != nil {
		return nil, err
	}

	f := newFetcher()
	normalizer := coords.NewNormalizer(f, coords.Options{
		Envelope:       coords.NewEnvelope(cfg.Bounds.MinLat, cfg.Bounds.MaxLat, cfg.Bounds.MinLon, cfg.Bounds.MaxLon),
		ShortHosts:     cfg.Resolve.ShortHosts,
		ResolveTimeout: cfg.Resolve.Timeout,
	})

	timeouts := make(map[model.Chain]time.Duration, len(sources))
	for c, s := range sources {
		timeouts[c] = s.Timeout
	}

	return extract.NewEngine(f, normalizer, geo.NewInferrer(g), extract.DefaultRegistry(sources), sink, extract.EngineOptions{
		OutDir:          cfg.Paths.DataDir,
		Concurrency:     cfg.Scrape.Concurrency,
		Timeouts:        timeouts,
		NormalizePhones: cfg.Scrape.NormalizePhones,
		PhoneRegion:     cfg.Scrape.PhoneRegion,
	}), nil
}

func analysisOptions() analysis.Options {
	return analysis.Options{
		ChartsDir:  cfg.Paths.ChartsDir,
		ReportsDir: cfg.Paths.ReportsDir,
		Width:      cfg.Analysis.ChartWidth,
		Height:     cfg.Analysis.ChartHeight,
	}
}

func newChecker(runs monitoring.RunLister) *monitoring.Checker {
	m := cfg.Monitor
	return monitoring.NewChecker(
		monitoring.NewCollector(runs),
		monitoring.NewAlerter(monitoring.Thresholds{
			FailureRate: m.FailureRateThreshold,
			Drop:        m.DropThreshold,
			WebhookURL:  m.WebhookURL,
		}),
		m.LookbackHours,
		m.CheckInterval,
	)
}
