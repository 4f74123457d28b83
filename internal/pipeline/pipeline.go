// Package pipeline wires the fetch, import, analyze, and report stages
// together. Each stage returns its RunStats by value; no stage mutates
// shared counters.
package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"callsight/internal/analyzer"
	"callsight/internal/logger"
	"callsight/internal/report"
	"callsight/internal/source"
	"callsight/internal/store"
	"callsight/internal/transform"
	"callsight/internal/types"
	"callsight/internal/window"
)

// Fetcher is the remote-source surface the sync stage needs.
type Fetcher interface {
	Fetch(ctx context.Context, w window.Window, limit int, fullExport bool) ([]transform.RawRecord, error)
}

type Pipeline struct {
	store *store.Store
	log   *logrus.Entry
}

func New(st *store.Store) *Pipeline {
	return &Pipeline{store: st, log: logger.NewComponent("pipeline")}
}

// ImportRecords transforms and upserts a batch of raw records. One record's
// failure is recorded and never blocks the rest of the batch.
func (p *Pipeline) ImportRecords(ctx context.Context, recs []transform.RawRecord, policy store.MergePolicy) types.RunStats {
	stats := types.NewRunStats()
	stats.Fetched = len(recs)

	for _, rec := range recs {
		t, err := transform.ToTranscript(rec)
		if err != nil {
			stats.AddError(rec[transform.ColCallKey], "transform", err)
			continue
		}
		if err := p.store.UpsertTranscript(ctx, t, policy); err != nil {
			p.log.WithField("vendor_call_key", t.VendorCallKey).WithError(err).Warn("import failed for record")
			stats.AddError(t.VendorCallKey, "import", err)
			continue
		}
		stats.Imported++
	}

	p.log.WithField("summary", stats.Summary()).Info("import batch finished")
	return stats
}

// Sync resolves the delta window, pulls the matching records from the
// vendor, and imports them. The window deliberately overlaps the most recent
// imported day; the idempotent upsert absorbs the re-fetch. A fetch or
// window failure aborts the run, per-record failures do not.
func (p *Pipeline) Sync(ctx context.Context, fetcher Fetcher, baseline time.Time, limit int, fullExport bool, policy store.MergePolicy) (types.RunStats, error) {
	w, err := window.ResolveFromStore(ctx, p.store, baseline, time.Now().UTC())
	if err != nil {
		return types.RunStats{}, err
	}
	p.log.WithFields(logrus.Fields{
		"start": w.StartParam(), "end": w.EndParam(), "full_export": fullExport,
	}).Info("sync window resolved")

	recs, err := fetcher.Fetch(ctx, w, limit, fullExport)
	if err != nil {
		return types.RunStats{}, err
	}
	return p.ImportRecords(ctx, recs, policy), nil
}

// ImportFile loads a local tab-delimited or spreadsheet export and imports
// it.
func (p *Pipeline) ImportFile(ctx context.Context, path string, policy store.MergePolicy) (types.RunStats, error) {
	recs, err := source.LoadFile(path)
	if err != nil {
		return types.RunStats{}, err
	}
	return p.ImportRecords(ctx, recs, policy), nil
}

// Analyze runs the dispatcher over every transcript that has no stored
// analysis yet. Already-analyzed calls are counted as skipped, which is also
// what makes an interrupted run resumable.
func (p *Pipeline) Analyze(ctx context.Context, classifier analyzer.Classifier, opts analyzer.Options, limit int) (types.RunStats, error) {
	pending, err := p.store.ListUnanalyzed(ctx, limit)
	if err != nil {
		return types.RunStats{}, err
	}
	total, err := p.store.CountTranscripts(ctx)
	if err != nil {
		return types.RunStats{}, err
	}

	d := analyzer.NewDispatcher(p.store, classifier, opts)
	stats := d.Run(ctx, pending)
	stats.Skipped = total - len(pending)
	return stats, nil
}

// BuildReport computes the latest aggregate snapshot from everything stored.
func (p *Pipeline) BuildReport(ctx context.Context) (report.Report, error) {
	analyses, agentByKey, err := p.store.ListAnalyses(ctx)
	if err != nil {
		return report.Report{}, err
	}
	agentNames, err := p.store.ListAgentNames(ctx)
	if err != nil {
		return report.Report{}, err
	}
	transcripts, err := p.store.CountTranscripts(ctx)
	if err != nil {
		return report.Report{}, err
	}

	return report.Report{
		GeneratedAt: time.Now().UTC(),
		Transcripts: transcripts,
		Analyses:    len(analyses),
		Agents:      report.AgentRankings(analyses, agentByKey, agentNames),
		Topics:      report.Topics(analyses),
	}, nil
}
