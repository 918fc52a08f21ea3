package analysis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/ZanzyTHEbar/burnout-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/ingest"
	"github.com/ZanzyTHEbar/burnout-o-meter/internal/types"
)

// ScoreBatch scores every record and collects the outcomes in input order.
// A failing record never stops the batch. Records not yet started when ctx
// is done are reported as failed.
func (p *Predictor) ScoreBatch(ctx context.Context, source string, records []types.RawEmployeeRecord) *BatchReport {
	start := time.Now()
	results := make([]RecordResult, len(records))

	if p.workers <= 1 || len(records) < 2 {
		for i, r := range records {
			results[i] = p.scoreWithContext(ctx, i, r)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(p.workers)
		for i, r := range records {
			g.Go(func() error {
				results[i] = p.scoreWithContext(ctx, i, r)
				return nil
			})
		}
		_ = g.Wait()
	}

	report := p.report(source, results)
	p.logger.BatchLogger(source, len(records), report.Summary.Burnout, report.Summary.Failed, time.Since(start))
	return report
}

func (p *Predictor) scoreWithContext(ctx context.Context, i int, r types.RawEmployeeRecord) RecordResult {
	if err := ctx.Err(); err != nil {
		return RecordResult{Index: i, Err: &RecordError{
			Index:      i,
			EmployeeID: EmployeeID(i, r),
			Category:   apperrors.CategoryTimeout,
			Message:    err.Error(),
		}}
	}
	return p.ScoreRecord(i, r)
}

func (p *Predictor) report(source string, results []RecordResult) *BatchReport {
	report := &BatchReport{
		Source:       source,
		Convention:   p.model.Convention().Name,
		SchemaSource: string(p.model.Schema().Source),
		Predictions:  make([]EmployeeResult, 0, len(results)),
		Errors:       []RecordError{},
		Results:      results,
	}

	drifted := 0
	for _, res := range results {
		if len(res.Missing) > 0 || len(res.Dropped) > 0 {
			drifted++
			p.logger.DriftLogger(res.Index, res.Missing, res.Dropped)
		}
		if res.OK() {
			report.Predictions = append(report.Predictions, *res.Result)
			continue
		}
		report.Errors = append(report.Errors, *res.Err)
		p.logger.RecordErrorLogger(res.Err.Index, res.Err.EmployeeID, res.Err)
	}

	report.Summary = Summarize(report.Predictions, len(report.Errors))
	if p.metrics != nil {
		p.metrics.RecordBatch(formatOf(source), report.Summary.Total, report.Summary.Failed, report.Summary.Burnout, drifted)
	}
	return report
}

// ProcessJSONFile scores the JSON document at path. An unreadable file,
// malformed JSON or an unsupported top-level shape yields no report.
func (p *Predictor) ProcessJSONFile(path string) (*BatchReport, error) {
	doc, err := ingest.ReadJSONFile(path)
	if err != nil {
		return nil, err
	}
	return p.ScoreBatch(context.Background(), path, doc.Records), nil
}

// ProcessFile scores a JSON, xlsx or CSV file.
func (p *Predictor) ProcessFile(ctx context.Context, path string, opts ingest.SheetOptions) (*BatchReport, error) {
	records, _, err := ingest.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return p.ScoreBatch(ctx, path, records), nil
}

func formatOf(source string) string {
	if f, err := ingest.FormatOf(source); err == nil {
		return string(f)
	}
	return source
}
