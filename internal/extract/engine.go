package extract

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azretail/chainscan/internal/coords"
	"github.com/azretail/chainscan/internal/dataset"
	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/phone"
)

// ErrNoListings means a source answered but yielded nothing, which almost
// always means its page layout changed.
var ErrNoListings = eris.New("extract: source returned no listings")

// Sink persists the stored records of one chain.
type Sink interface {
	SaveStores(ctx context.Context, runID string, chain model.Chain, records []model.StoreRecord) error
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	OutDir          string
	Concurrency     int
	Timeouts        map[model.Chain]time.Duration
	NormalizePhones bool
	PhoneRegion     string
}

// Engine runs extractors and writes their tables.
type Engine struct {
	fetcher    fetcher.Fetcher
	normalizer *coords.Normalizer
	inferrer   *geo.Inferrer
	reg        *Registry
	sink       Sink
	opts       EngineOptions
}

// RunOpts selects what to run.
type RunOpts struct {
	RunID   string
	Sources []string // chain names; empty or "all" runs everything
}

// NewEngine creates an Engine. sink may be nil.
func NewEngine(f fetcher.Fetcher, n *coords.Normalizer, in *geo.Inferrer, reg *Registry, sink Sink, opts EngineOptions) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.OutDir == "" {
		opts.OutDir = "data"
	}
	return &Engine{fetcher: f, normalizer: n, inferrer: in, reg: reg, sink: sink, opts: opts}
}

// Run extracts every selected source in parallel. The first source that
// fails as a whole cancels the rest and its error is returned together with
// the summaries of sources that had already finished.
func (e *Engine) Run(ctx context.Context, opts RunOpts) ([]model.SourceSummary, error) {
	log := zap.L().With(zap.String("component", "extract.engine"))

	extractors, err := e.reg.Select(opts.Sources)
	if err != nil {
		return nil, err
	}
	log.Info("selected sources", zap.Int("count", len(extractors)))

	var (
		mu        sync.Mutex
		summaries = make(map[model.Chain]model.SourceSummary)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, ex := range extractors {
		g.Go(func() error {
			sum, err := e.runOne(gctx, opts.RunID, ex)
			if err != nil {
				return eris.Wrapf(err, "extract: %s", ex.Chain())
			}
			mu.Lock()
			summaries[ex.Chain()] = *sum
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	out := make([]model.SourceSummary, 0, len(summaries))
	for _, ex := range extractors {
		if s, ok := summaries[ex.Chain()]; ok {
			out = append(out, s)
		}
	}
	return out, err
}

func (e *Engine) runOne(ctx context.Context, runID string, ex Extractor) (*model.SourceSummary, error) {
	log := zap.L().With(
		zap.String("component", "extract.engine"),
		zap.String("source", string(ex.Chain())),
		zap.String("url", ex.URL()),
	)
	start := time.Now()

	if d := e.opts.Timeouts[ex.Chain()]; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	log.Info("extracting")
	res, err := ex.Extract(ctx, e.fetcher)
	if err != nil {
		log.Error("source failed", zap.Error(err))
		return nil, err
	}
	for _, f := range res.Failures {
		log.Warn("listing skipped", zap.Int("index", f.Index), zap.String("reason", f.Reason))
	}
	if len(res.Records) == 0 && len(res.Failures) == 0 {
		return nil, ErrNoListings
	}

	stored, sum := e.Normalize(ctx, ex.Chain(), res)
	sum.Skipped = len(res.Failures)

	columns := dataset.SourceColumns(ex.Fields(), ex.Extras())
	table := dataset.FromRecords(ex.Chain(), columns, stored)
	sum.Output = dataset.SourcePath(e.opts.OutDir, ex.Chain())
	if err := dataset.WriteCSV(sum.Output, table); err != nil {
		return nil, err
	}
	if e.sink != nil {
		if err := e.sink.SaveStores(ctx, runID, ex.Chain(), stored); err != nil {
			return nil, eris.Wrap(err, "save stores")
		}
	}

	sum.Duration = time.Since(start).Milliseconds()
	log.Info("source complete",
		zap.Int("extracted", sum.Extracted),
		zap.Int("skipped", sum.Skipped),
		zap.Int("dropped", sum.Dropped),
		zap.Int("stored", sum.Stored),
		zap.Float64("pass_rate", sum.PassRate()),
	)
	return &sum, nil
}

// Normalize validates the coordinates of every raw record, infers its city
// and formats its phone numbers. Records whose coordinates fail are dropped
// and counted by reason.
func (e *Engine) Normalize(ctx context.Context, chain model.Chain, res *Result) ([]model.StoreRecord, model.SourceSummary) {
	log := zap.L().With(zap.String("component", "extract.engine"), zap.String("source", string(chain)))
	sum := model.SourceSummary{
		Chain:     chain,
		Extracted: len(res.Records),
		Formats:   map[string]int{},
		Reasons:   map[string]int{},
	}

	stored := make([]model.StoreRecord, 0, len(res.Records))
	for _, raw := range res.Records {
		p, format, err := e.normalizer.Normalize(ctx, raw.Coordinate)
		if err != nil {
			sum.Dropped++
			sum.Reasons[coords.Reason(err)]++
			log.Debug("record dropped", zap.Int("seq", raw.Seq), zap.String("name", raw.Name.String()), zap.Error(err))
			continue
		}
		sum.Formats[string(format)]++

		ph := raw.Phone
		if e.opts.NormalizePhones && ph.Filled() {
			ph = model.Value(phone.NormalizeList(ph.String(), e.opts.PhoneRegion))
		}
		stored = append(stored, model.StoreRecord{
			Chain:        chain,
			Seq:          raw.Seq,
			Name:         raw.Name,
			Address:      raw.Address,
			City:         e.inferrer.City(raw.Address.String(), &p),
			Latitude:     p.Lat,
			Longitude:    p.Lon,
			Phone:        ph,
			Hours:        raw.Hours,
			SourceFormat: format,
			Extra:        raw.Extra,
		})
	}
	sum.Stored = len(stored)
	return stored, sum
}
