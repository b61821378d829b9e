package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azretail/chainscan/internal/analysis"
	"github.com/azretail/chainscan/internal/dataset"
	"github.com/azretail/chainscan/internal/extract"
	"github.com/azretail/chainscan/internal/model"
	"github.com/azretail/chainscan/internal/store"
)

var errNoCombined = eris.New("merged table not found; run `chainscan merge` first")

// recordRun creates a run of the given kind, executes fn and stores the
// outcome. fn's error is returned unchanged.
func recordRun(ctx context.Context, st store.Store, kind model.RunKind, fn func(runID string) (*model.RunResult, error)) (*model.RunResult, error) {
	run, err := st.CreateRun(ctx, kind)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("kind", string(kind)))
	log.Info("run started")

	result, fnErr := fn(run.ID)
	if result == nil {
		result = &model.RunResult{}
	}
	if fnErr != nil {
		result.Error = describeError(fnErr)
		// the run is recorded even when ctx was cancelled
		if err := st.FailRun(context.WithoutCancel(ctx), run.ID, result); err != nil {
			log.Warn("failed to record run failure", zap.Error(err))
		}
		log.Error("run failed", zap.Error(fnErr))
		return result, fnErr
	}
	if err := st.CompleteRun(ctx, run.ID, result); err != nil {
		return result, eris.Wrap(err, "complete run")
	}
	log.Info("run complete", zap.Int("rows", result.Rows))
	return result, nil
}

func scrapeStage(ctx context.Context, st store.Store, out io.Writer, sources []string) error {
	engine, err := newEngine(st)
	if err != nil {
		return err
	}
	result, err := recordRun(ctx, st, model.RunKindScrape, func(runID string) (*model.RunResult, error) {
		summaries, err := engine.Run(ctx, extract.RunOpts{RunID: runID, Sources: sources})
		res := &model.RunResult{Sources: summaries}
		for _, s := range summaries {
			res.Rows += s.Stored
		}
		return res, err
	})
	if result != nil && len(result.Sources) > 0 {
		formatSourceSummaries(out, result.Sources)
	}
	return err
}

func mergeStage(ctx context.Context, st store.Store, out io.Writer) error {
	order := model.Chains()
	_, err := recordRun(ctx, st, model.RunKindMerge, func(string) (*model.RunResult, error) {
		tables, err := dataset.LoadSources(ctx, cfg.Paths.DataDir, order)
		if err != nil {
			return nil, err
		}
		merged, err := dataset.Merge(tables, order, cfg.Merge.MissingMarker)
		if err != nil {
			return nil, err
		}
		path := cfg.Paths.CombinedPath()
		if err := dataset.WriteCSV(path, merged); err != nil {
			return nil, err
		}

		counts := make(map[model.Chain]int, len(tables))
		for c, t := range tables {
			counts[c] = t.Len()
		}
		formatMergeCounts(out, counts, order, path)
		return &model.RunResult{Rows: merged.Len()}, nil
	})
	return err
}

func analyzeStage(ctx context.Context, st store.Store, out io.Writer) error {
	path := cfg.Paths.CombinedPath()
	_, err := recordRun(ctx, st, model.RunKindAnalyze, func(string) (*model.RunResult, error) {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(errNoCombined, "analyze %s", path)
		}
		g, err := loadGazetteer()
		if err != nil {
			return nil, err
		}
		m, err := analysis.LoadMarket(ctx, path, cfg.Merge.MissingMarker, g)
		if err != nil {
			return nil, err
		}
		sections, err := analysis.NewAnalyzer(analysisOptions()).Run(ctx, m)
		if len(sections) > 0 {
			formatSections(out, sections)
		}
		return &model.RunResult{Rows: len(m.Records), Sections: sections}, err
	})
	return err
}
