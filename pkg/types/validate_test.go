package types_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/caremon/internal/fixtures"
	"github.com/mesh-intelligence/caremon/pkg/types"
)

func fixedValidator() *types.Validator {
	v := types.NewValidator()
	v.Now = func() time.Time { return time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC) }
	v.NewID = func() string { return "generated-id" }
	return v
}

func TestValidate_AppliesDefaults(t *testing.T) {
	v := fixedValidator()
	in := fixtures.OfficialSurvey("", "  복지과  ")
	in.CreatedAt = time.Time{}

	rec, err := v.Validate(types.KindOfficialSurveys, in)
	require.NoError(t, err)

	out := rec.(*types.OfficialSurvey)
	assert.Equal(t, "generated-id", out.ID)
	assert.Equal(t, "복지과", out.Department)
	assert.Equal(t, v.Now(), out.CreatedAt)

	// Input untouched.
	assert.Equal(t, "", in.ID)
	assert.Equal(t, "  복지과  ", in.Department)
	assert.True(t, in.CreatedAt.IsZero())
}

func TestValidate_DoesNotMutatePointerInput(t *testing.T) {
	in := fixtures.ElderlySurvey("e1", "기관")
	five := 5
	in.ServiceUsage.Education = types.ServiceUse{Usage: 0, Satisfaction: &five}
	ptr := &in

	rec, err := fixedValidator().Validate(types.KindElderlySurveys, ptr)
	require.NoError(t, err)

	out := rec.(*types.ElderlySurvey)
	assert.Nil(t, out.ServiceUsage.Education.Satisfaction, "satisfaction dropped when unused")
	assert.NotNil(t, ptr.ServiceUsage.Education.Satisfaction, "input keeps its value")
	assert.NotSame(t, ptr, out)
}

func TestValidate_OfficialSurveyViolations(t *testing.T) {
	in := fixtures.OfficialSurvey("o1", "")
	in.Necessity = 0
	in.Sufficiency = 6
	in.NeededServices = types.StringList{"a", "b", "c"}
	in.Priority = "  "

	_, err := types.Validate(types.KindOfficialSurveys, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrValidation))

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, types.KindOfficialSurveys, verr.Kind)
	for _, field := range []string{"department", "necessity", "sufficiency", "neededServices", "priority"} {
		assert.True(t, verr.Has(field), "expected violation for %s, got %v", field, verr.Violations)
	}
}

func TestValidate_ElderlySurveyRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *types.ElderlySurvey)
		field  string
	}{
		{"age below 65", func(s *types.ElderlySurvey) { s.Age = 64 }, "age"},
		{"unknown gender", func(s *types.ElderlySurvey) { s.Gender = "other" }, "gender"},
		{"unknown care type", func(s *types.ElderlySurvey) { s.CareType = "basic" }, "careType"},
		{"used service without satisfaction", func(s *types.ElderlySurvey) {
			s.ServiceUsage.Linkage = types.ServiceUse{Usage: 2}
		}, "serviceUsage.linkage.satisfaction"},
		{"negative usage", func(s *types.ElderlySurvey) {
			s.ServiceUsage.Daily = types.ServiceUse{Usage: -1}
		}, "serviceUsage.daily.usage"},
		{"detail satisfaction above 4", func(s *types.ElderlySurvey) {
			five := 5
			s.DetailServices.Outing = types.DetailUse{Used: true, Satisfaction: &five}
		}, "detailServices.outing.satisfaction"},
		{"evaluation out of range", func(s *types.ElderlySurvey) { s.OverallEvaluation.LifeHelp = 0 }, "overallEvaluation.lifeHelp"},
		{"life change out of range", func(s *types.ElderlySurvey) { s.LifeChanges.Health = 9 }, "lifeChanges.health"},
		{"too many improvements", func(s *types.ElderlySurvey) {
			s.AdditionalOpinions.Improvements = types.StringList{"a", "b", "c", "d", "e"}
		}, "additionalOpinions.improvements"},
		{"missing organization", func(s *types.ElderlySurvey) { s.Organization = " " }, "organization"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fixtures.ElderlySurvey("e1", "기관")
			tt.mutate(&s)
			_, err := types.Validate(types.KindElderlySurveys, s)
			var verr *types.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.True(t, verr.Has(tt.field), "expected %s in %v", tt.field, verr.Violations)
		})
	}
}

func TestValidate_UnusedDetailServiceIgnoresSatisfaction(t *testing.T) {
	s := fixtures.ElderlySurvey("e1", "기관")
	nine := 9
	s.DetailServices.Housework = types.DetailUse{Used: false, Satisfaction: &nine}

	rec, err := types.Validate(types.KindElderlySurveys, s)
	require.NoError(t, err)
	assert.Nil(t, rec.(*types.ElderlySurvey).DetailServices.Housework.Satisfaction)
}

func TestValidate_DistributionAndSummary(t *testing.T) {
	d := fixtures.Distribution("d1", "기관", 0)
	d.Date = time.Time{}
	_, err := types.Validate(types.KindInventoryDistributions, d)
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("distributed"))
	assert.True(t, verr.Has("date"))

	s := fixtures.Summary(100, 10)
	s.ID = "something-else"
	rec, err := types.Validate(types.KindInventorySummary, s)
	require.NoError(t, err)
	assert.Equal(t, types.SummaryKey, rec.(*types.InventorySummary).ID)

	over := fixtures.Summary(10, 20)
	_, err = types.Validate(types.KindInventorySummary, over)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestValidate_OrganizationAndDocument(t *testing.T) {
	o := fixtures.Organization("org1", "북구", "clinic")
	_, err := types.Validate(types.KindOrganizations, o)
	assert.ErrorIs(t, err, types.ErrValidation)

	doc := fixtures.Document("doc1", "")
	doc.FileSize = -1
	_, err = types.Validate(types.KindDocuments, doc)
	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("category"))
	assert.True(t, verr.Has("fileSize"))
}

func TestValidate_KindErrors(t *testing.T) {
	_, err := types.Validate(types.KindDocuments, fixtures.Organization("o", "r", types.OrgOther))
	assert.ErrorIs(t, err, types.ErrKindMismatch)

	_, err = types.Validate(types.Kind("visits"), fixtures.Organization("o", "r", types.OrgOther))
	assert.ErrorIs(t, err, types.ErrUnknownKind)

	var nilSurvey *types.OfficialSurvey
	_, err = types.Validate(types.KindOfficialSurveys, nilSurvey)
	assert.ErrorIs(t, err, types.ErrKindMismatch)
}

func TestDecodeRecord_LegacySingleSelection(t *testing.T) {
	s := fixtures.ElderlySurvey("e1", "기관")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["additionalOpinions"].(map[string]any)["mostSatisfiedService"] = "meal"
	data, err = json.Marshal(raw)
	require.NoError(t, err)

	rec, err := types.DecodeRecord(types.KindElderlySurveys, data)
	require.NoError(t, err)
	got := rec.(*types.ElderlySurvey)
	assert.Equal(t, types.StringList{"meal"}, got.AdditionalOpinions.MostSatisfiedService)
}

func TestParseKind(t *testing.T) {
	k, err := types.ParseKind("official_surveys")
	require.NoError(t, err)
	assert.Equal(t, types.KindOfficialSurveys, k)

	k, err = types.ParseKind("documents")
	require.NoError(t, err)
	assert.Equal(t, types.KindDocuments, k)

	_, err = types.ParseKind("visits")
	assert.ErrorIs(t, err, types.ErrUnknownKind)
}

func TestDocumentFileData(t *testing.T) {
	doc := fixtures.Document("doc1", types.DefaultDocumentCategories[0])
	mediaType, data, err := doc.DecodeFileData()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mediaType)
	assert.Equal(t, "hello doc1", string(data))

	doc.FileData = "plain text"
	_, _, err = doc.DecodeFileData()
	assert.ErrorIs(t, err, types.ErrInvalidFileData)
}
