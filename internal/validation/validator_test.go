package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/incident-form-converter/internal/types"
)

func validRecord() types.Record {
	return types.Record{Values: []types.Value{
		{Name: string(types.FieldName), Text: "Maria Garcia"},
		{Name: string(types.FieldEmail), Text: "maria.garcia@itb.cat"},
		{Name: string(types.FieldDate), Text: "15/10/2024"},
		{Name: string(types.FieldTime), Text: "09:30:00"},
		{Name: string(types.FieldLocation), Text: "Aula 204"},
		{Name: string(types.FieldDomain), Text: "Equipament Informatic"},
		{Name: string(types.FieldEquipment), Text: "Projector"},
		{Name: string(types.FieldSeverity), Text: "Alta (impossibilita el treball)"},
		{Name: string(types.FieldDescription), Text: "El projector no s'encén"},
		{Name: string(types.FieldCause), Text: "Làmpada fosa"},
		{Name: string(types.FieldFrequency), Text: "Passa sovint (intermitent)"},
	}}
}

func TestValidator_ValidRecord(t *testing.T) {
	v := New(DefaultRules())
	r := validRecord()

	assert.True(t, v.Strict(r))

	outcome := v.Detailed(r)
	assert.True(t, outcome.Valid())
	assert.Empty(t, outcome.Errors)
	assert.Equal(t, ModeDetailed, outcome.Mode)
}

func TestValidator_DetailedCollectsExactlyInvalidFields(t *testing.T) {
	v := New(DefaultRules())
	r := validRecord()
	r.Set(string(types.FieldEmail), "a@b.c")
	r.Set(string(types.FieldTime), "24:00:00")
	r.Set(string(types.FieldFrequency), "Cada dia")

	outcome := v.Detailed(r)
	require.False(t, outcome.Valid())
	assert.ElementsMatch(t,
		[]types.Field{types.FieldEmail, types.FieldTime, types.FieldFrequency},
		outcome.Fields())
	for _, e := range outcome.Errors {
		assert.NotEmpty(t, e.Message, e.Field)
	}

	// Errors follow the form order.
	assert.Equal(t,
		[]types.Field{types.FieldEmail, types.FieldTime, types.FieldFrequency},
		outcome.Fields())

	msg, ok := outcome.Message(types.FieldTime)
	require.True(t, ok)
	assert.Equal(t, MsgTime, msg)
	assert.False(t, outcome.Has(types.FieldName))
}

func TestValidator_MissingFieldsAreEmpty(t *testing.T) {
	v := New(DefaultRules())

	outcome := v.Detailed(types.Record{})
	assert.False(t, outcome.Valid())
	assert.ElementsMatch(t, types.Fields(), outcome.Fields())
	assert.False(t, v.Strict(types.Record{}))
}

func TestValidator_StrictMatchesDetailed(t *testing.T) {
	v := New(DefaultRules())

	mutations := []func(*types.Record){
		func(r *types.Record) {},
		func(r *types.Record) { r.Set(string(types.FieldName), "jo") },
		func(r *types.Record) { r.Set(string(types.FieldDate), "31/02/2024") },
		func(r *types.Record) { r.Set(string(types.FieldLocation), "") },
		func(r *types.Record) { r.Set(string(types.FieldDomain), "Xarxa ") },
		func(r *types.Record) { r.Set(string(types.FieldDescription), "curt") },
		func(r *types.Record) { r.Set(string(types.FieldCause), "no") },
		func(r *types.Record) { r.Set(string(types.FieldSeverity), "alta") },
		func(r *types.Record) { r.Set(string(types.FieldEquipment), "Tauleta") },
	}

	for i, mutate := range mutations {
		r := validRecord()
		mutate(&r)
		assert.Equal(t, v.Strict(r), v.Detailed(r).Valid(), "mutation %d", i)
	}
}

func TestValidator_ValidateDispatchesOnMode(t *testing.T) {
	v := New(DefaultRules())
	r := validRecord()
	r.Set(string(types.FieldEmail), "nope")

	strict := v.Validate(r, ModeStrict)
	assert.Equal(t, ModeStrict, strict.Mode)
	assert.False(t, strict.Valid())
	assert.Empty(t, strict.Errors)

	detailed := v.Validate(r, ModeDetailed)
	assert.Equal(t, ModeDetailed, detailed.Mode)
	assert.Equal(t, []types.Field{types.FieldEmail}, detailed.Fields())
}

func TestValidator_CustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.AffectedDomains = NewSet("Mobiliari")
	rules.MaxYear = 2030
	v := New(rules)

	r := validRecord()
	r.Set(string(types.FieldDomain), "Mobiliari")
	r.Set(string(types.FieldDate), "01/01/2029")
	assert.True(t, v.Strict(r))

	r.Set(string(types.FieldDomain), "Xarxa")
	assert.Equal(t, []types.Field{types.FieldDomain}, v.Detailed(r).Fields())
}

func TestValidator_PanicIsFieldFailure(t *testing.T) {
	v := New(DefaultRules())
	v.checks[0].run = func(string) string { panic("boom") }

	r := validRecord()
	assert.False(t, v.Strict(r))

	outcome := v.Detailed(r)
	msg, ok := outcome.Message(types.FieldName)
	require.True(t, ok)
	assert.Equal(t, MsgUnexpectedFail, msg)
	assert.Len(t, outcome.Errors, 1)
}

func TestValidator_ValidateField(t *testing.T) {
	v := New(DefaultRules())
	assert.Empty(t, v.ValidateField(types.FieldTime, "23:59:59"))
	assert.Equal(t, MsgTime, v.ValidateField(types.FieldTime, "24:00:00"))
	assert.Empty(t, v.ValidateField(types.Field("Marca_de_temps"), "anything"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Detailed")
	require.NoError(t, err)
	assert.Equal(t, ModeDetailed, m)

	m, err = ParseMode("strict")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, m)

	_, err = ParseMode("lenient")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	v := New(DefaultRules())
	var s Summary

	s.Add(v.Detailed(validRecord()))
	bad := validRecord()
	bad.Set(string(types.FieldEmail), "x")
	s.Add(v.Detailed(bad))

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Valid)
	assert.Equal(t, 1, s.Invalid)
	assert.Equal(t, 1, s.FieldFailures[types.FieldEmail])
}
