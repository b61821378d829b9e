package extract

import (
	"context"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

// Extractor reads one chain's listings.
type Extractor interface {
	// Chain returns the chain this extractor reads.
	Chain() model.Chain

	// URL returns the page or API endpoint read.
	URL() string

	// Fields returns the optional core columns (name, address, phone,
	// hours) the site provides. Columns not listed are never collected.
	Fields() []string

	// Extras returns chain-specific columns, in output order.
	Extras() []string

	// Extract fetches and parses the listings. A returned error means the
	// source as a whole is unusable; per-listing problems go in Result.Failures.
	Extract(ctx context.Context, f fetcher.Fetcher) (*Result, error)
}

// Result is what one extraction produced.
type Result struct {
	Records  []model.RawRecord
	Failures []Failure
}

// Failure describes a listing that could not be read.
type Failure struct {
	Index  int
	Reason string
}

func (r *Result) add(rec model.RawRecord) {
	rec.Seq = len(r.Records)
	r.Records = append(r.Records, rec)
}

func (r *Result) fail(index int, format string, args ...any) {
	r.Failures = append(r.Failures, Failure{Index: index, Reason: eris.Errorf(format, args...).Error()})
}

// SourceConfig is the per-chain configuration.
type SourceConfig struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Disabled bool          `mapstructure:"disabled"`
}

// DefaultSources returns the built-in endpoint for every chain.
func DefaultSources() map[model.Chain]SourceConfig {
	timeout := 2 * time.Minute
	return map[model.Chain]SourceConfig{
		model.ChainOBA:   {URL: "https://oba.az/branches/", Timeout: timeout},
		model.ChainAraz:  {URL: "https://arazmarket.az/az/stores", Timeout: timeout},
		model.ChainBravo: {URL: "https://www.bravosupermarket.az/branches/", Timeout: timeout},
		model.ChainTam:   {URL: "https://www.tamstore.az/api/branch-api", Timeout: timeout},
		model.ChainRahat: {URL: "https://rahatmarket.az/az/map", Timeout: timeout},
	}
}

// MergeSources lays configured overrides, keyed by case-insensitive chain
// name, over the defaults. Unknown names are an error.
func MergeSources(overrides map[string]SourceConfig) (map[model.Chain]SourceConfig, error) {
	out := DefaultSources()
	for name, o := range overrides {
		c, err := model.ParseChain(strings.TrimSpace(name))
		if err != nil {
			return nil, eris.Wrap(err, "extract: sources")
		}
		merged := out[c]
		if err := mergo.Merge(&merged, o, mergo.WithOverride); err != nil {
			return nil, eris.Wrapf(err, "extract: merge %s source config", c)
		}
		out[c] = merged
	}
	return out, nil
}

// DefaultRegistry registers every enabled extractor, in merge priority order.
func DefaultRegistry(sources map[model.Chain]SourceConfig) *Registry {
	if sources == nil {
		sources = DefaultSources()
	}
	reg := NewRegistry()
	for _, e := range []Extractor{
		NewBravo(sources[model.ChainBravo].URL),
		NewAraz(sources[model.ChainAraz].URL),
		NewRahat(sources[model.ChainRahat].URL),
		NewOBA(sources[model.ChainOBA].URL),
		NewTam(sources[model.ChainTam].URL),
	} {
		if !sources[e.Chain()].Disabled {
			reg.Register(e)
		}
	}
	return reg
}
