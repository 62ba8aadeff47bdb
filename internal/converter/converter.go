// =============================================================================
// Sales Aggregator - Ingestion Pipeline
// =============================================================================
//
// This module contains the core ingestion logic. It orchestrates the whole
// pipeline, from reading the configured source files to the flat record
// sequence the aggregator and the writer consume.
//
// INGESTION PIPELINE (per source file, in configuration order):
//   1. Check the file exists (missing files are skipped with a warning)
//   2. Open it as CSV, or as a workbook for .xlsx sources
//   3. For each row:
//        a. Normalize header names and values
//        b. Keep only rows for the target product
//        c. Calculate the sales value
//   4. Collect row failures into the run Summary
//
// CONCURRENCY:
//   With max_concurrency > 1 files are read in parallel, each into its own
//   slot. Slots are concatenated in file order, so the record order is the
//   same as a sequential run. The Pipeline's state is guarded by an RWMutex:
//   readers may call Series while Refresh runs, and a failed Refresh leaves
//   the previous state in place.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/sales-aggregator/internal/aggregate"
	"github.com/ginjaninja78/sales-aggregator/internal/config"
	"github.com/ginjaninja78/sales-aggregator/internal/csvparser"
	"github.com/ginjaninja78/sales-aggregator/internal/csvwriter"
	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"github.com/ginjaninja78/sales-aggregator/internal/validation"
	"github.com/ginjaninja78/sales-aggregator/internal/xlsxparser"
	"github.com/ginjaninja78/sales-aggregator/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// ROW SOURCES
// =============================================================================

// RowSource streams the rows of one source file. Both the CSV and the
// workbook readers satisfy it.
type RowSource interface {
	Next() bool
	Row() types.RawRow
	Line() int
	Err() error
	Close() error
}

// openSource picks a reader by file extension. Anything that is not a
// workbook is read as delimited text.
func openSource(path string, settings config.CSVSettings) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxparser.Open(path)
	default:
		return csvparser.NewStreamingParser(path, settings)
	}
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline ingests the configured sources and holds the resulting records.
type Pipeline struct {
	cfg         *config.MainConfig
	logger      *zap.Logger
	filter      *ProductFilter
	calculator  *SalesCalculator
	priceChange time.Time

	mu      sync.RWMutex
	loaded  bool
	records []types.CleanRecord
	summary *validation.Summary
}

// fileResult is the slot one source file is read into.
type fileResult struct {
	records []types.CleanRecord
	summary *validation.Summary
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Pipeline. Nothing is read until Load.
//
// PARAMETERS:
//   - cfg: The pipeline configuration. nil means config.Default().
//   - logger: Where warnings and progress go. nil discards them.
//
// RETURNS:
//   - A new Pipeline.
//   - An error if cfg does not validate.
func New(cfg *config.MainConfig, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	priceChange, err := cfg.PriceChange()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Pipeline{
		cfg:         cfg,
		logger:      logger,
		filter:      NewProductFilter(cfg.TargetProduct),
		calculator:  NewSalesCalculator(NewPriceParser(cfg.CurrencySymbols...)),
		priceChange: priceChange,
	}, nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads every source and replaces the pipeline's records.
//
// RETURNS:
//   - The run summary. Missing files and bad rows are reported here, not
//     as errors.
//   - A *validation.IOFatalError if a source exists but cannot be read, or
//     ctx's error if the run was cancelled. The previous records and
//     summary are kept in both cases.
func (p *Pipeline) Load(ctx context.Context) (*validation.Summary, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	sources, err := p.resolveSources(logger)
	if err != nil {
		return nil, err
	}

	summary := validation.NewSummary(runID, p.cfg.MaxErrorSamples)
	summary.FilesConfigured = len(sources)

	logger.Info("loading sales data",
		zap.Int("sources", len(sources)),
		zap.String("product", p.cfg.TargetProduct),
		zap.Int("max_concurrency", p.cfg.MaxConcurrency))

	slots := make([]fileResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrency)

	for i, path := range sources {
		g.Go(func() error {
			result, err := p.loadFile(gctx, logger, path)
			if err != nil {
				return err
			}
			slots[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("load failed, keeping previous data", zap.Error(err))
		return nil, err
	}

	var records []types.CleanRecord
	for _, slot := range slots {
		records = append(records, slot.records...)
		summary.Merge(slot.summary)
	}
	summary.Finish()

	p.mu.Lock()
	p.records = records
	p.summary = summary
	p.loaded = true
	p.mu.Unlock()

	logger.Info("sales data loaded",
		zap.Int("files_processed", summary.FilesProcessed),
		zap.Int("files_skipped", summary.FilesSkipped),
		zap.Int("rows_retained", summary.RowsRetained),
		zap.Int("rows_skipped", summary.RowsSkipped),
		zap.Duration("duration", summary.Duration()))

	return summary, nil
}

// Refresh reloads every source. It is Load under another name so callers
// can say what they mean.
func (p *Pipeline) Refresh(ctx context.Context) (*validation.Summary, error) {
	p.logger.Debug("refreshing sales data")
	return p.Load(ctx)
}

// resolveSources returns the explicit sources followed by any discovered in
// source_dir. A source_dir that does not exist contributes nothing.
func (p *Pipeline) resolveSources(logger *zap.Logger) ([]string, error) {
	if p.cfg.SourceDir == "" {
		return utils.MergeSources(p.cfg.Sources), nil
	}

	found, err := utils.DiscoverSources(p.cfg.SourceDir, p.cfg.SourcePattern)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("source directory not found", zap.String("dir", p.cfg.SourceDir))
		return utils.MergeSources(p.cfg.Sources), nil
	}
	if err != nil {
		return nil, &validation.IOFatalError{Op: "scan", Path: p.cfg.SourceDir, Err: err}
	}

	return utils.MergeSources(p.cfg.Sources, found), nil
}

// loadFile reads one source into its own slot.
func (p *Pipeline) loadFile(ctx context.Context, logger *zap.Logger, path string) (fileResult, error) {
	result := fileResult{summary: validation.NewSummary("", p.cfg.MaxErrorSamples)}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	exists, err := utils.SourceExists(path)
	if err != nil {
		return result, &validation.IOFatalError{Op: "stat", Path: path, Err: err}
	}
	if !exists {
		missing := &validation.MissingFileError{Path: path, Err: fs.ErrNotExist}
		logger.Warn("skipping missing source", zap.String("path", path), zap.Error(missing))
		result.summary.AddMissingFile(path)
		return result, nil
	}

	source, err := openSource(path, p.cfg.CSVSettings)
	if err != nil {
		return result, &validation.IOFatalError{Op: "open", Path: path, Err: err}
	}
	defer source.Close()

	logger.Debug("reading source", zap.String("path", path))

	for source.Next() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.summary.RowsRead++

		record, kept, err := p.processRow(source.Row())
		if err != nil {
			rowErr := &validation.RowError{Source: path, Line: source.Line(), Err: err}
			logger.Warn("skipping row",
				zap.String("path", path),
				zap.Int("line", source.Line()),
				zap.String("kind", validation.KindOf(err)),
				zap.Error(err))
			result.summary.AddRowError(rowErr)
			continue
		}
		if !kept {
			result.summary.RowsFiltered++
			continue
		}

		result.records = append(result.records, record)
		result.summary.RowsRetained++
	}

	if err := source.Err(); err != nil {
		return result, &validation.IOFatalError{Op: "read", Path: path, Err: err}
	}

	result.summary.FilesProcessed++
	return result, nil
}

// processRow runs one row through the normalizer, the product filter and the
// calculator.
//
// RETURNS:
//   - The record and true when the row is a valid sale of the target product.
//   - false and no error when the row is for another product.
//   - A row-level error when the row cannot be used.
func (p *Pipeline) processRow(raw types.RawRow) (types.CleanRecord, bool, error) {
	row := NormalizeRow(raw, types.RequiredFields)

	// Without a product field a row cannot be classified at all.
	if err := RequireFields(row, []string{types.FieldProduct}); err != nil {
		return types.CleanRecord{}, false, err
	}
	if !p.filter.Match(row) {
		return types.CleanRecord{}, false, nil
	}

	record, err := p.calculator.Calculate(row)
	if err != nil {
		return types.CleanRecord{}, false, err
	}
	return record, true, nil
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Loaded reports whether a Load has succeeded.
func (p *Pipeline) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Records returns a copy of the records in ingestion order.
func (p *Pipeline) Records() []types.CleanRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.CleanRecord(nil), p.records...)
}

// Summary returns the summary of the last successful Load, or nil.
func (p *Pipeline) Summary() *validation.Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.summary
}

// Series aggregates the loaded records for region ("" or "all" for every
// region). Before the first successful Load the result carries
// aggregate.ErrNotLoaded.
func (p *Pipeline) Series(region string) aggregate.Result {
	region = strings.TrimSpace(region)
	if aggregate.IsAllRegions(region) {
		region = aggregate.AllRegions
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return aggregate.Result{Region: region, Err: aggregate.ErrNotLoaded}
	}
	return aggregate.Result{Region: region, Points: aggregate.Series(p.records, region)}
}

// Regions lists the regions present in the loaded records.
func (p *Pipeline) Regions() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return aggregate.Regions(p.records)
}

// PriceChangeDate returns the configured price-change marker date.
func (p *Pipeline) PriceChangeDate() time.Time {
	return p.priceChange
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteArtifact writes the loaded records to path, or to output_file when
// path is empty.
//
// RETURNS:
//   - aggregate.ErrNotLoaded before the first successful Load.
//   - A *validation.IOFatalError if the artifact cannot be written.
func (p *Pipeline) WriteArtifact(path string) error {
	if path == "" {
		path = p.cfg.OutputFile
	}

	p.mu.RLock()
	loaded := p.loaded
	records := p.records
	p.mu.RUnlock()

	if !loaded {
		return aggregate.ErrNotLoaded
	}

	if err := csvwriter.WriteFile(path, records); err != nil {
		p.logger.Error("failed to write artifact", zap.String("path", path), zap.Error(err))
		return err
	}

	p.logger.Info("wrote artifact", zap.String("path", path), zap.Int("records", len(records)))
	return nil
}
