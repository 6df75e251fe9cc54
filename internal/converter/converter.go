// =============================================================================
// Incident Form Converter - Converter Module
// =============================================================================
//
// This module contains the pipeline driver. It orchestrates the three
// operations of the converter, from reading the form export to writing the
// reports.
//
// OPERATIONS:
//   Convert (form export -> XML):
//     1. Read the CSV or XLSX export
//     2. Sanitize the header row into XML tags
//     3. Apply transformation rules to each answer
//     4. Validate every record (optionally dropping invalid ones)
//     5. Write the XML record set
//
//   Report (XML -> TXT/JSON):
//     1. Read the XML record set
//     2. Validate every record in the variant's mode
//     3. Write the variant's text and JSON reports
//     4. Print the on-screen listing, if the variant has one
//
//   Process: Convert followed by Report in one locked run.
//
// FAILURE POLICY:
//   - Input that cannot be read is fatal and marked with ErrInput.
//   - Output that cannot be written is fatal and marked with ErrOutput.
//   - Field failures are data: they end up in the reports, not in errors.
//
// CONCURRENCY:
//   Runs are synchronous. An advisory lock on the output directory stops two
//   runs from writing the same files at once.
//
// =============================================================================

package converter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
	"github.com/ginjaninja78/incident-form-converter/internal/csvparser"
	"github.com/ginjaninja78/incident-form-converter/internal/lock"
	"github.com/ginjaninja78/incident-form-converter/internal/report"
	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/validation"
	"github.com/ginjaninja78/incident-form-converter/internal/xlsxparser"
	"github.com/ginjaninja78/incident-form-converter/internal/xmlreader"
	"github.com/ginjaninja78/incident-form-converter/internal/xmlwriter"
	"github.com/ginjaninja78/incident-form-converter/pkg/utils"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInput marks failures to read or parse an input file.
	ErrInput = errors.New("input error")

	// ErrOutput marks failures to write an output file.
	ErrOutput = errors.New("output error")
)

// Operation names, as reported in results and run summaries.
const (
	OpConvert = "convert"
	OpReport  = "report"
	OpProcess = "process"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one operation.
type Result struct {
	// RunID identifies the run in logs and the run summary.
	RunID string

	// Operation is one of OpConvert, OpReport or OpProcess.
	Operation string

	// InputFile is the form export read by Convert; empty for Report.
	InputFile string

	// XMLFile is the XML record set written by Convert or read by Report.
	XMLFile string

	// Variant is the report variant; empty for Convert.
	Variant string

	// Outputs lists the files written, in order.
	Outputs []OutputFile

	// SummaryFile is the run summary path, when one was written.
	SummaryFile string

	// Invalid lists the records that failed validation during Convert.
	Invalid []InvalidRecord

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// OutputFile describes a written file.
type OutputFile struct {
	Path        string
	ArchivePath string
	Bytes       int
}

// InvalidRecord is a record that failed validation, with its errors.
type InvalidRecord struct {
	RowNumber int
	Errors    []validation.FieldError
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RecordsRead is the number of records read from the input.
	RecordsRead int

	// ValidRecords is the number of records passing every field check.
	ValidRecords int

	// InvalidRecords is the number of records failing at least one check.
	InvalidRecords int

	// RecordsWritten is the number of records in the XML (Convert) or in
	// the reports (Report).
	RecordsWritten int

	// FieldFailures counts failing records per field, when known.
	FieldFailures map[types.Field]int

	// ProcessingTime is the time taken by the operation.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the conversion pipeline for one configuration.
type Converter struct {
	cfg         *config.MainConfig
	logger      *zap.Logger
	validator   *validation.Validator
	transformer *Transformer
	files       *utils.FileManager
	lock        *lock.Lock
	stdout      io.Writer
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default discards all logs.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// WithStdout sets the writer for the on-screen listing. Default: os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(c *Converter) { c.stdout = w }
}

// WithLock replaces the output directory lock.
func WithLock(l *lock.Lock) Option {
	return func(c *Converter) { c.lock = l }
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - cfg: The validated configuration.
//   - opts: Optional settings.
//
// RETURNS:
//   - A new Converter instance.
//   - An error if the transformation rules are invalid.
func New(cfg *config.MainConfig, opts ...Option) (*Converter, error) {
	transformer, err := NewTransformer(cfg.TransformationRules)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid transformation rules"),
			"check transformation_rules in the configuration file")
	}

	c := &Converter{
		cfg:         cfg,
		logger:      zap.NewNop(),
		validator:   validation.New(cfg.Rules()),
		transformer: transformer,
		files:       utils.NewFileManager(cfg.OutputDir, cfg.ArchiveDir),
		stdout:      os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lock == nil {
		c.lock = lock.ForDir(cfg.OutputDir)
	}

	return c, nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Convert reads the form export and writes the XML record set.
func (c *Converter) Convert(ctx context.Context) (*Result, error) {
	return c.run(ctx, OpConvert, func(result *Result, log *zap.Logger) error {
		return c.convert(ctx, result, log)
	})
}

// Report reads the XML record set and writes the reports of the configured
// variant.
func (c *Converter) Report(ctx context.Context) (*Result, error) {
	return c.run(ctx, OpReport, func(result *Result, log *zap.Logger) error {
		return c.report(ctx, result, log)
	})
}

// Process runs Convert and then Report.
func (c *Converter) Process(ctx context.Context) (*Result, error) {
	return c.run(ctx, OpProcess, func(result *Result, log *zap.Logger) error {
		if err := c.convert(ctx, result, log); err != nil {
			return err
		}
		return c.report(ctx, result, log)
	})
}

// run wraps an operation with the run ID, the output directory lock, timing
// and the optional run summary.
func (c *Converter) run(ctx context.Context, op string, body func(*Result, *zap.Logger) error) (*Result, error) {
	startTime := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.New().String(),
		Operation: op,
	}
	log := c.logger.With(zap.String("run_id", result.RunID), zap.String("operation", op))

	if err := c.files.EnsureDirectories(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "preparing output directory"), ErrOutput)
	}

	if err := c.lock.TryLock(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			log.Warn("failed to release lock", zap.Error(err))
		}
	}()

	log.Debug("run started", zap.String("output_dir", c.cfg.OutputDir))

	if err := body(result, log); err != nil {
		return nil, err
	}

	result.Stats.ProcessingTime = time.Since(startTime)

	if c.cfg.WriteSummary {
		path, err := utils.WriteSummaryLog(c.summary(result, startTime), c.cfg.OutputDir)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "writing run summary"), ErrOutput)
		}
		result.SummaryFile = path
		log.Debug("wrote run summary", zap.String("path", path))
	}

	log.Info("run complete",
		zap.Int("records_read", result.Stats.RecordsRead),
		zap.Int("valid", result.Stats.ValidRecords),
		zap.Int("invalid", result.Stats.InvalidRecords),
		zap.Int("written", result.Stats.RecordsWritten),
		zap.Duration("elapsed", result.Stats.ProcessingTime))

	return result, nil
}

// =============================================================================
// CONVERT
// =============================================================================

func (c *Converter) convert(ctx context.Context, result *Result, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: READ THE FORM EXPORT
	// =========================================================================

	inputPath := c.cfg.InputFile
	result.InputFile = inputPath
	log.Info("reading form export", zap.String("input_file", inputPath))

	table, err := c.readSource(inputPath)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: SANITIZE HEADERS
	// =========================================================================

	tags := xmlwriter.SanitizeHeaders(table.Headers)
	log.Debug("sanitized headers", zap.Strings("tags", tags))
	warnMissingFields(log, tags)

	records := table.Records(tags)
	result.Stats.RecordsRead = len(records)

	// =========================================================================
	// STEP 3: APPLY TRANSFORMATION RULES
	// =========================================================================

	for i := range records {
		if err := c.transformer.TransformRecord(&records[i]); err != nil {
			return errors.Mark(errors.Wrap(err, "applying transformation rules"), ErrInput)
		}
	}
	if c.transformer.Len() > 0 {
		log.Debug("applied transformation rules", zap.Int("rules", c.transformer.Len()))
	}

	// =========================================================================
	// STEP 4: VALIDATE
	// =========================================================================
	// Every record is validated in detailed mode so the run can report which
	// fields fail; only the decision is used for filtering.

	includeInvalid := c.cfg.XML.IncludeInvalidRecords()
	kept := make([]types.Record, 0, len(records))
	var summary validation.Summary

	for _, record := range records {
		outcome := c.validator.Detailed(record)
		summary.Add(outcome)

		if !outcome.Valid() {
			result.Invalid = append(result.Invalid, InvalidRecord{
				RowNumber: record.RowNumber,
				Errors:    outcome.Errors,
			})
			log.Debug("invalid record",
				zap.Int("row", record.RowNumber),
				zap.Strings("fields", fieldNames(outcome.Fields())))
			if !includeInvalid {
				continue
			}
		}
		kept = append(kept, record)
	}

	result.Stats.ValidRecords = summary.Valid
	result.Stats.InvalidRecords = summary.Invalid
	result.Stats.FieldFailures = summary.FieldFailures
	result.Stats.RecordsWritten = len(kept)

	if !includeInvalid && summary.Invalid > 0 {
		log.Info("dropped invalid records", zap.Int("count", summary.Invalid))
	}

	// =========================================================================
	// STEP 5: WRITE THE XML RECORD SET
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := c.write(result, c.cfg.XMLFile, xmlwriter.Generate(kept))
	if err != nil {
		return err
	}
	result.XMLFile = out.Path
	log.Info("wrote XML record set",
		zap.String("xml_file", out.Path),
		zap.Int("records", len(kept)))

	return nil
}

// readSource parses the form export, choosing the reader by extension.
func (c *Converter) readSource(path string) (*types.Table, error) {
	var (
		table *types.Table
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = xlsxparser.Parse(path, c.cfg.XLSXSettings, c.cfg.CSVSettings.TrimValues)
	default:
		table, err = csvparser.Parse(path, c.cfg.CSVSettings)
	}
	if err != nil {
		return nil, errors.Mark(
			errors.WithHintf(errors.Wrapf(err, "reading %s", path),
				"check input_file (or --input); the export must have a header row"),
			ErrInput)
	}

	return table, nil
}

// warnMissingFields logs every form field absent from the header row.
func warnMissingFields(log *zap.Logger, tags []string) {
	present := make(map[string]bool, len(tags))
	for _, tag := range tags {
		present[tag] = true
	}
	for _, f := range types.Fields() {
		if !present[string(f)] {
			log.Warn("form field missing from header; it will read as empty",
				zap.String("field", string(f)))
		}
	}
}

func fieldNames(fields []types.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// =============================================================================
// REPORT
// =============================================================================

func (c *Converter) report(ctx context.Context, result *Result, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	variant, err := report.LookupVariant(c.cfg.Report.Variant)
	if err != nil {
		return errors.WithHint(err, "valid variants are filter, json and valid_invalid")
	}
	variant = variant.WithFileNames(c.cfg.Report.TextFile, c.cfg.Report.JSONFile)
	result.Variant = variant.Name

	// =========================================================================
	// STEP 1: READ THE XML RECORD SET
	// =========================================================================

	xmlPath := c.files.OutputPath(c.cfg.XMLFile)
	result.XMLFile = xmlPath
	log.Info("reading XML record set", zap.String("xml_file", xmlPath), zap.String("variant", variant.Name))

	doc, err := xmlreader.ReadFile(xmlPath)
	if err != nil {
		return errors.Mark(
			errors.WithHint(errors.Wrapf(err, "reading %s", xmlPath),
				"run the convert command first, or point xml_file (or --xml) at an existing record set"),
			ErrInput)
	}
	if doc.Root != xmlwriter.DefaultGenerateOptions().RootElement {
		log.Warn("unexpected root element", zap.String("root", doc.Root))
	}

	// =========================================================================
	// STEP 2: VALIDATE AND RENDER
	// =========================================================================

	out, err := report.Generate(doc.Records, c.validator, variant, !c.cfg.Report.NoColor)
	if err != nil {
		return errors.Mark(err, ErrOutput)
	}

	result.Stats.RecordsRead = len(doc.Records)
	result.Stats.ValidRecords = out.Summary.Valid
	result.Stats.InvalidRecords = out.Summary.Invalid
	result.Stats.RecordsWritten = out.Written
	if out.Summary.FieldFailures != nil {
		result.Stats.FieldFailures = out.Summary.FieldFailures
	}

	// =========================================================================
	// STEP 3: WRITE THE REPORTS
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	if out.Text != nil {
		written, err := c.write(result, variant.TextFile, out.Text)
		if err != nil {
			return err
		}
		log.Info("wrote text report", zap.String("path", written.Path), zap.Int("records", out.Written))
	}
	if out.JSON != nil {
		written, err := c.write(result, variant.JSONFile, out.JSON)
		if err != nil {
			return err
		}
		log.Info("wrote JSON report", zap.String("path", written.Path), zap.Int("records", out.Written))
	}
	if out.Screen != nil {
		if _, err := c.stdout.Write(out.Screen); err != nil {
			return errors.Mark(errors.Wrap(err, "printing listing"), ErrOutput)
		}
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// write stores one output file and records it in the result.
func (c *Converter) write(result *Result, name string, data []byte) (OutputFile, error) {
	path, archived, err := c.files.WriteOutput(name, data)
	if err != nil {
		return OutputFile{}, errors.Mark(
			errors.WithHintf(errors.Wrapf(err, "writing %s", name),
				"check that %s is writable", c.cfg.OutputDir),
			ErrOutput)
	}

	if archived != "" {
		c.logger.Debug("archived previous output", zap.String("path", path), zap.String("archive", archived))
	}

	out := OutputFile{Path: path, ArchivePath: archived, Bytes: len(data)}
	result.Outputs = append(result.Outputs, out)
	return out, nil
}

// summary converts a result into the run summary format.
func (c *Converter) summary(result *Result, startTime time.Time) utils.RunSummary {
	s := utils.RunSummary{
		RunID:          result.RunID,
		Operation:      result.Operation,
		StartTime:      startTime,
		EndTime:        startTime.Add(result.Stats.ProcessingTime),
		InputFile:      result.InputFile,
		XMLFile:        result.XMLFile,
		Variant:        result.Variant,
		RecordsRead:    result.Stats.RecordsRead,
		ValidRecords:   result.Stats.ValidRecords,
		InvalidRecords: result.Stats.InvalidRecords,
		RecordsWritten: result.Stats.RecordsWritten,
	}

	for _, f := range types.Fields() {
		if n := result.Stats.FieldFailures[f]; n > 0 {
			s.FieldFailures = append(s.FieldFailures, utils.FieldCount{Field: string(f), Count: n})
		}
	}

	for _, o := range result.Outputs {
		s.Outputs = append(s.Outputs, utils.OutputFileInfo{
			Path:        o.Path,
			ArchivePath: o.ArchivePath,
			Bytes:       o.Bytes,
		})
	}

	for _, ir := range result.Invalid {
		info := utils.InvalidRecordInfo{RowNumber: ir.RowNumber}
		for _, fe := range ir.Errors {
			info.Errors = append(info.Errors, fe.Field.Label()+": "+fe.Message)
		}
		s.Invalid = append(s.Invalid, info)
	}

	return s
}
