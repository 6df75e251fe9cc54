package converter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/incident-form-converter/internal/config"
	"github.com/ginjaninja78/incident-form-converter/internal/lock"
	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/xmlreader"
)

// exportHeaders are the column headers as the form tool exports them.
var exportHeaders = []string{
	"Nom i cognoms",
	"Adreça electrònica",
	"Data detecció de la incidència",
	"Hora detecció de la incidència",
	"Ubicació equip afectat",
	"Quin àmbit ha estat afectat",
	"Tipus d'equip afectat",
	"Grau de gravetat",
	"Descripció de la incidència",
	"Possible motiu de l'incident",
	"Freqüència en què es produeix el problema",
}

var validRow = []string{
	"Maria Garcia",
	"maria@example.com",
	"15/03/2024",
	"10:30:00",
	"Aula 12",
	"Xarxa",
	"Projector",
	"Alta (impossibilita el treball)",
	"El projector no s'encén",
	"Cable solt",
	"Només ha passat una vegada",
}

// invalidRow fails the name and email checks only.
func invalidRow() []string {
	row := append([]string(nil), validRow...)
	row[0] = "jo"
	row[1] = "not-an-email"
	return row
}

func writeCSV(t *testing.T, dir string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(dir, "respostes.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(exportHeaders))
	require.NoError(t, w.WriteAll(rows))
	return path
}

func testConfig(t *testing.T, input string) *config.MainConfig {
	t.Helper()
	cfg := config.Default()
	cfg.InputFile = input
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Report.NoColor = true
	require.NoError(t, cfg.Validate())
	return cfg
}

func newConverter(t *testing.T, cfg *config.MainConfig, opts ...Option) *Converter {
	t.Helper()
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	return c
}

func TestConvert_WritesAllRecordsByDefault(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow, invalidRow())
	cfg := testConfig(t, input)

	result, err := newConverter(t, cfg).Convert(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OpConvert, result.Operation)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Stats.RecordsRead)
	assert.Equal(t, 1, result.Stats.ValidRecords)
	assert.Equal(t, 1, result.Stats.InvalidRecords)
	assert.Equal(t, 2, result.Stats.RecordsWritten)
	assert.Equal(t, 1, result.Stats.FieldFailures[types.FieldEmail])

	require.Len(t, result.Invalid, 1)
	assert.Equal(t, 2, result.Invalid[0].RowNumber)
	require.Len(t, result.Invalid[0].Errors, 2)
	assert.Equal(t, types.FieldName, result.Invalid[0].Errors[0].Field)
	assert.Equal(t, types.FieldEmail, result.Invalid[0].Errors[1].Field)

	require.Len(t, result.Outputs, 1)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "Incidencies.xml"), result.XMLFile)

	doc, err := xmlreader.ReadFile(result.XMLFile)
	require.NoError(t, err)
	assert.Equal(t, "Registros", doc.Root)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "Maria Garcia", doc.Records[0].Field(types.FieldName))
	assert.Equal(t, "El projector no s'encén", doc.Records[0].Field(types.FieldDescription))
	assert.Equal(t, "jo", doc.Records[1].Field(types.FieldName))

	for _, f := range types.Fields() {
		_, ok := doc.Records[0].Lookup(string(f))
		assert.True(t, ok, "missing tag %s", f)
	}
}

func TestConvert_DropsInvalidRecords(t *testing.T) {
	input := writeCSV(t, t.TempDir(), invalidRow(), validRow)
	cfg := testConfig(t, input)
	include := false
	cfg.XML.IncludeInvalid = &include

	result, err := newConverter(t, cfg).Convert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.RecordsWritten)

	doc, err := xmlreader.ReadFile(result.XMLFile)
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, "Maria Garcia", doc.Records[0].Field(types.FieldName))
}

func TestConvert_AppliesTransformations(t *testing.T) {
	row := append([]string(nil), validRow...)
	row[1] = "MARIA@EXAMPLE.COM"
	row[7] = "Alta"
	input := writeCSV(t, t.TempDir(), row)

	cfg := testConfig(t, input)
	cfg.TransformationRules = []config.TransformationRule{
		{Field: "Adreça electrònica", Actions: []config.TransformationAction{{Type: "lowercase"}}},
		{Field: "Grau_de_gravetat", Actions: []config.TransformationAction{
			{Type: "lookup", LookupTable: map[string]string{"Alta": "Alta (impossibilita el treball)"}},
		}},
	}

	result, err := newConverter(t, cfg).Convert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.ValidRecords)

	doc, err := xmlreader.ReadFile(result.XMLFile)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", doc.Records[0].Field(types.FieldEmail))
	assert.Equal(t, "Alta (impossibilita el treball)", doc.Records[0].Field(types.FieldSeverity))
}

func TestConvert_XLSXInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "respostes.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &exportHeaders))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &validRow))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	result, err := newConverter(t, testConfig(t, path)).Convert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.RecordsRead)
	assert.Equal(t, 1, result.Stats.ValidRecords)
}

func TestConvert_WarnsAboutMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.csv")
	require.NoError(t, os.WriteFile(path, []byte("Nom i cognoms,Extra\nMaria Garcia,x\n"), 0644))

	core, logs := observer.New(zap.WarnLevel)
	result, err := newConverter(t, testConfig(t, path), WithLogger(zap.New(core))).
		Convert(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.InvalidRecords)
	assert.Equal(t, len(types.Fields())-1,
		logs.FilterMessageSnippet("missing from header").Len())
}

func TestConvert_MissingInput(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "absent.csv"))

	_, err := newConverter(t, cfg).Convert(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInput))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestConvert_EmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := newConverter(t, testConfig(t, path)).Convert(context.Background())
	assert.True(t, errors.Is(err, ErrInput))
}

func TestConvert_LockHeld(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow)
	cfg := testConfig(t, input)
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0755))

	held := lock.ForDir(cfg.OutputDir)
	require.NoError(t, held.TryLock(context.Background()))
	defer held.Unlock()

	_, err := newConverter(t, cfg).Convert(context.Background())
	assert.True(t, errors.Is(err, lock.ErrAlreadyLocked))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "Incidencies.xml"))
}

func TestConvert_CancelledContext(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newConverter(t, testConfig(t, input)).Convert(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvert_ArchivesPreviousXML(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow)
	cfg := testConfig(t, input)
	cfg.ArchiveDir = filepath.Join(t.TempDir(), "archive")
	c := newConverter(t, cfg)

	first, err := c.Convert(context.Background())
	require.NoError(t, err)
	assert.Empty(t, first.Outputs[0].ArchivePath)

	second, err := c.Convert(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, second.Outputs[0].ArchivePath)
}

func TestReport_ValidInvalid(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow, invalidRow())
	cfg := testConfig(t, input)
	c := newConverter(t, cfg)

	_, err := c.Convert(context.Background())
	require.NoError(t, err)

	result, err := c.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, config.VariantValidInvalid, result.Variant)
	assert.Equal(t, 2, result.Stats.RecordsRead)
	assert.Equal(t, 2, result.Stats.RecordsWritten)
	assert.Equal(t, 1, result.Stats.InvalidRecords)
	require.Len(t, result.Outputs, 2)

	text, err := os.ReadFile(filepath.Join(cfg.OutputDir, "incidencies_filtrat_valid_invalid.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "REGISTRE D'INCIDÈNCIA VÀLID")
	assert.Contains(t, string(text), "REGISTRE D'INCIDÈNCIA INVÀLID")
	assert.Contains(t, string(text), " - Adreca electronica: Email invàlid.")
	assert.NotContains(t, string(text), "\033[")

	doc, err := os.ReadFile(filepath.Join(cfg.OutputDir, "incidencies_valid_invalid.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(doc), "[\n    {"))
	assert.Contains(t, string(doc), `"valid": false`)
	assert.Contains(t, string(doc), `"Nom_i_cognoms": "Nom invàlid: calen mínim nom i cognoms."`)
}

func TestReport_IsDeterministic(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow, invalidRow())
	cfg := testConfig(t, input)
	c := newConverter(t, cfg)

	_, err := c.Convert(context.Background())
	require.NoError(t, err)

	jsonPath := filepath.Join(cfg.OutputDir, "incidencies_valid_invalid.json")
	_, err = c.Report(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	_, err = c.Report(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReport_JSONVariantPrintsListing(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow, invalidRow())
	cfg := testConfig(t, input)
	cfg.Report.Variant = config.VariantJSON

	var screen bytes.Buffer
	c := newConverter(t, cfg, WithStdout(&screen))

	_, err := c.Convert(context.Background())
	require.NoError(t, err)
	result, err := c.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.RecordsWritten)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "incidencies_filtrat.json"), result.Outputs[0].Path)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "incidencies_filtrat.txt"))

	assert.Contains(t, screen.String(), "Nom i cognoms: Maria Garcia")
	assert.NotContains(t, screen.String(), "not-an-email")

	doc, err := os.ReadFile(result.Outputs[0].Path)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), `"valid"`)
}

func TestReport_FilterVariantCustomFileName(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow)
	cfg := testConfig(t, input)
	cfg.Report.Variant = config.VariantFilter
	cfg.Report.TextFile = "filtrat.txt"
	cfg.Report.JSONFile = "ignored.json"
	c := newConverter(t, cfg)

	_, err := c.Convert(context.Background())
	require.NoError(t, err)
	_, err = c.Report(context.Background())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "filtrat.txt"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "ignored.json"))
}

func TestReport_MissingXML(t *testing.T) {
	cfg := testConfig(t, "respostes.csv")

	_, err := newConverter(t, cfg).Report(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInput))
	assert.Contains(t, strings.Join(errors.GetAllHints(err), "\n"), "convert")
}

func TestProcess_WritesSummary(t *testing.T) {
	input := writeCSV(t, t.TempDir(), validRow, invalidRow())
	cfg := testConfig(t, input)
	cfg.WriteSummary = true

	result, err := newConverter(t, cfg).Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OpProcess, result.Operation)
	assert.Equal(t, input, result.InputFile)
	assert.Len(t, result.Outputs, 3)
	require.NotEmpty(t, result.SummaryFile)

	summary, err := os.ReadFile(result.SummaryFile)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Operation:      process")
	assert.Contains(t, string(summary), "Record #2")
	assert.Contains(t, string(summary), "Adreca electronica: Email invàlid.")
}

func TestNew_InvalidTransformationRule(t *testing.T) {
	cfg := config.Default()
	cfg.TransformationRules = []config.TransformationRule{{
		Field:   "Nom_i_cognoms",
		Actions: []config.TransformationAction{{Type: "regex_replace", Find: "("}},
	}}

	_, err := New(cfg)
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}
