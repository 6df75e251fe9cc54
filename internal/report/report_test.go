package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
	"github.com/ginjaninja78/incident-form-converter/internal/validation"
)

func validRecord() types.Record {
	return types.Record{Values: []types.Value{
		{Name: string(types.FieldName), Text: "Maria Garcia"},
		{Name: string(types.FieldEmail), Text: "maria.garcia@itb.cat"},
		{Name: string(types.FieldDate), Text: "15/10/2024"},
		{Name: string(types.FieldTime), Text: "09:30:00"},
		{Name: string(types.FieldLocation), Text: "Aula 204"},
		{Name: string(types.FieldDomain), Text: "Equipament audiovisual"},
		{Name: string(types.FieldEquipment), Text: "Projector"},
		{Name: string(types.FieldSeverity), Text: "Alta (impossibilita el treball)"},
		{Name: string(types.FieldDescription), Text: "No s'encén <mai>"},
		{Name: string(types.FieldCause), Text: "Làmpada fosa"},
		{Name: string(types.FieldFrequency), Text: "Sempre que s’utilitza l’equip"},
	}}
}

func invalidRecord() types.Record {
	r := validRecord()
	r.Set(string(types.FieldName), "jo")
	r.Set(string(types.FieldTime), "24:00:00")
	return r
}

// ---------------------------------------------------------------------------
// Renderer
// ---------------------------------------------------------------------------

func TestRenderer_ValidFileStyle(t *testing.T) {
	out := NewRenderer().Valid(validRecord())

	lines := strings.SplitAfter(out, "\033[0m")
	assert.Equal(t, "\033[1;33m==============================\n\033[0m", lines[0])
	assert.Equal(t, "\033[1;32m   REGISTRE D'INCIDÈNCIA VÀLID\n\033[0m", lines[1])
	assert.Equal(t, "\033[1;33m==============================\n\033[0m", lines[2])
	assert.Equal(t, "\033[1;34mNom i cognoms: Maria Garcia\n\033[0m", lines[3])
	assert.Equal(t, "\033[93mFrequencia en que es produeix el problema: Sempre que s’utilitza l’equip\n\033[0m", lines[13])
	assert.Equal(t, "\n", lines[14])
	assert.Len(t, lines, 15)
}

func TestRenderer_ValidTerminalStyle(t *testing.T) {
	out := NewRenderer(WithStyle(StyleTerminal)).Valid(validRecord())

	assert.True(t, strings.HasPrefix(out, "\033[1;33m==============================\033[0m\n\033[1;32m   REGISTRE"))
	assert.Contains(t, out, "\033[36mHora deteccio de la incidencia: 09:30:00\033[0m\n")
	assert.True(t, strings.HasSuffix(out, "\033[0m\n\n"))
}

func TestRenderer_MissingFieldsShownEmpty(t *testing.T) {
	out := NewRenderer(WithColor(false)).Valid(types.Record{})
	assert.Contains(t, out, "Possible motiu de l incident: \n")
	assert.Equal(t, 3+11+1, strings.Count(out, "\n"))
}

func TestRenderer_Invalid(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	outcome := v.Detailed(invalidRecord())

	out := NewRenderer().Invalid(outcome)
	want := "\033[1;31m==============================\n\033[0m" +
		"\033[1;31m   REGISTRE D'INCIDÈNCIA INVÀLID\n\033[0m" +
		"\033[1;31m==============================\n\033[0m" +
		"\033[1;31mErrors trobats:\n\033[0m" +
		"\033[31m - Nom i cognoms: " + validation.MsgNameTokens + "\n\033[0m" +
		"\033[31m - Hora deteccio de la incidencia: " + validation.MsgTime + "\n\033[0m" +
		"\n"
	assert.Equal(t, want, out)
}

func TestRenderer_NoColor(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	out := NewRenderer(WithColor(false)).Block(invalidRecord(), v.Detailed(invalidRecord()))

	assert.NotContains(t, out, "\033[")
	assert.True(t, strings.HasPrefix(out, Border+"\n"+TitleInvalid+"\n"+Border+"\n"+ErrorsHeader+"\n"))
}

func TestFieldColor(t *testing.T) {
	assert.Equal(t, "1;34", FieldColor(types.FieldName))
	assert.Equal(t, "31", FieldColor(types.FieldSeverity))
	assert.Equal(t, "0", FieldColor(types.Field("Marca_de_temps")))
	for _, f := range types.Fields() {
		assert.NotEqual(t, "0", FieldColor(f), f)
	}
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

func TestEntry_StrictHasOnlyFields(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	entry := NewEntry(validRecord(), v.Validate(validRecord(), validation.ModeStrict))

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 11)
	assert.NotContains(t, got, "valid")
	assert.NotContains(t, got, "errors")
}

func TestEntry_KeyOrder(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	data, err := NewEntry(invalidRecord(), v.Detailed(invalidRecord())).MarshalJSON()
	require.NoError(t, err)

	s := string(data)
	last := -1
	for _, key := range []string{
		`"Nom_i_cognoms"`, `"Adreca_electronica"`, `"Frequencia_en_que_es_produeix_el_problema"`,
		`"valid":false`, `"errors":{"Nom_i_cognoms"`, `"Hora_deteccio_de_la_incidencia":"Hora invàlida (hh:mm:ss)."}`,
	} {
		idx := strings.Index(s, key)
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, key)
		last = idx
	}
}

func TestEncodeDocument(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	doc, err := EncodeDocument([]Entry{NewEntry(validRecord(), v.Detailed(validRecord()))})
	require.NoError(t, err)

	s := string(doc)
	assert.True(t, strings.HasPrefix(s, "[\n    {\n        \"Nom_i_cognoms\": \"Maria Garcia\",\n"))
	assert.Contains(t, s, `"Descripcio_de_la_incidencia": "No s'encén <mai>"`)
	assert.Contains(t, s, `"Sempre que s’utilitza l’equip"`)
	assert.Contains(t, s, "        \"valid\": true,\n        \"errors\": {}\n    }\n]")
	assert.False(t, strings.HasSuffix(s, "\n"))
}

func TestEncodeDocument_Empty(t *testing.T) {
	doc, err := EncodeDocument(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(doc))
}

// ---------------------------------------------------------------------------
// Variants
// ---------------------------------------------------------------------------

func TestLookupVariant(t *testing.T) {
	v, err := LookupVariant("Valid_Invalid")
	require.NoError(t, err)
	assert.Equal(t, validation.ModeDetailed, v.Mode)
	assert.Equal(t, "incidencies_filtrat_valid_invalid.txt", v.TextFile)
	assert.Equal(t, "incidencies_valid_invalid.json", v.JSONFile)
	assert.True(t, v.IncludesInvalid())

	_, err = LookupVariant("pdf")
	assert.Error(t, err)
}

func TestVariant_WithFileNames(t *testing.T) {
	filter, err := LookupVariant("filter")
	require.NoError(t, err)

	renamed := filter.WithFileNames("valids.txt", "valids.json")
	assert.Equal(t, "valids.txt", renamed.TextFile)
	assert.Empty(t, renamed.JSONFile, "filter never writes JSON")

	assert.Equal(t, filter, filter.WithFileNames("", ""))
}

func TestGenerate_Filter(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	variant, _ := LookupVariant("filter")

	out, err := Generate([]types.Record{validRecord(), invalidRecord(), validRecord()}, v, variant, true)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(string(out.Text), TitleValid))
	assert.NotContains(t, string(out.Text), TitleInvalid)
	assert.Nil(t, out.JSON)
	assert.Nil(t, out.Screen)
	assert.Equal(t, 2, out.Written)
	assert.Equal(t, validation.Summary{Total: 3, Valid: 2, Invalid: 1}, out.Summary)
}

func TestGenerate_JSON(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	variant, _ := LookupVariant("json")

	out, err := Generate([]types.Record{invalidRecord(), validRecord()}, v, variant, true)
	require.NoError(t, err)

	assert.Nil(t, out.Text)
	assert.Contains(t, string(out.Screen), "\033[1;32m   REGISTRE D'INCIDÈNCIA VÀLID\033[0m\n")

	var entries []map[string]string
	require.NoError(t, json.Unmarshal(out.JSON, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Maria Garcia", entries[0]["Nom_i_cognoms"])
}

func TestGenerate_ValidInvalid(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	variant, _ := LookupVariant("valid_invalid")

	out, err := Generate([]types.Record{invalidRecord(), validRecord()}, v, variant, false)
	require.NoError(t, err)

	text := string(out.Text)
	assert.Less(t, strings.Index(text, TitleInvalid), strings.Index(text, TitleValid), "document order is kept")
	assert.NotContains(t, text, "\033[")

	var entries []struct {
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(out.JSON, &entries))
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Valid)
	assert.Len(t, entries[0].Errors, 2)
	assert.True(t, entries[1].Valid)
	assert.Empty(t, entries[1].Errors)

	assert.Equal(t, 2, out.Written)
	assert.Equal(t, 1, out.Summary.FieldFailures[types.FieldName])
}

func TestGenerate_Deterministic(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	variant, _ := LookupVariant("valid_invalid")
	records := []types.Record{validRecord(), invalidRecord(), {}}

	first, err := Generate(records, v, variant, true)
	require.NoError(t, err)
	second, err := Generate(records, v, variant, true)
	require.NoError(t, err)

	assert.Equal(t, first.JSON, second.JSON)
	assert.Equal(t, first.Text, second.Text)
}

func TestGenerate_NoRecords(t *testing.T) {
	v := validation.New(validation.DefaultRules())
	variant, _ := LookupVariant("valid_invalid")

	out, err := Generate(nil, v, variant, true)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out.JSON))
	assert.NotNil(t, out.Text)
	assert.Empty(t, out.Text)
}
