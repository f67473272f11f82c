package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validator checks candidate records against their kind's constraints and
// returns normalized copies. Now and NewID supply defaults for absent
// timestamps and keys.
type Validator struct {
	Now   func() time.Time
	NewID func() string

	v *validator.Validate
}

// NewValidator returns a Validator that stamps UTC wall-clock time and
// UUID v7 keys.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateServiceUse, ServiceUse{})
	return &Validator{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: newUUID,
		v:     v,
	}
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// validateServiceUse requires a satisfaction score once a service was used.
func validateServiceUse(sl validator.StructLevel) {
	u := sl.Current().Interface().(ServiceUse)
	if u.Usage > 0 && u.Satisfaction == nil {
		sl.ReportError(u.Satisfaction, "satisfaction", "Satisfaction", "required_with_usage", "")
	}
}

var defaultValidator = NewValidator()

// Validate checks candidate with the default Validator.
func Validate(kind Kind, candidate Record) (Record, error) {
	return defaultValidator.Validate(kind, candidate)
}

// DecodeRecord decodes JSON into a record of kind without validating it.
func DecodeRecord(kind Kind, data []byte) (Record, error) {
	rec, err := NewRecord(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", kind, err)
	}
	return rec, nil
}

// normalizer is implemented by every record kind. normalize returns a copy
// with defaults applied; the receiver is never modified.
type normalizer interface {
	normalize(now time.Time, newID func() string) Record
}

// Validate returns the normalized record or a *ValidationError listing every
// violation. The candidate is never modified.
func (v *Validator) Validate(kind Kind, candidate Record) (Record, error) {
	if isNilRecord(candidate) {
		return nil, fmt.Errorf("%w: nil %s record", ErrKindMismatch, kind)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if candidate.Kind() != kind {
		return nil, fmt.Errorf("%w: %s record given for %s", ErrKindMismatch, candidate.Kind(), kind)
	}
	n, ok := candidate.(normalizer)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrKindMismatch, candidate)
	}
	rec := n.normalize(v.Now(), v.NewID)

	if err := v.v.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("validating %s record: %w", kind, err)
		}
		verr := &ValidationError{Kind: kind}
		for _, fe := range fieldErrs {
			verr.Violations = append(verr.Violations, FieldViolation{
				Field: fieldPath(fe.Namespace()),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		return nil, verr
	}
	return rec, nil
}

func isNilRecord(r Record) bool {
	if r == nil {
		return true
	}
	rv := reflect.ValueOf(r)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// fieldPath drops the leading struct type name from a validator namespace,
// leaving the JSON path ("serviceUsage.safety.satisfaction").
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func orNewID(id string, newID func() string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return newID()
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s OfficialSurvey) normalize(now time.Time, newID func() string) Record {
	out := s
	out.ID = orNewID(s.ID, newID)
	out.Department = strings.TrimSpace(s.Department)
	out.Position = strings.TrimSpace(s.Position)
	out.Experience = strings.TrimSpace(s.Experience)
	out.NeededServices = s.NeededServices.normalized()
	out.Effect = strings.TrimSpace(s.Effect)
	out.Problem = strings.TrimSpace(s.Problem)
	out.Priority = strings.TrimSpace(s.Priority)
	out.Knowledge = strings.TrimSpace(s.Knowledge)
	out.CreatedAt = orNow(s.CreatedAt, now)
	return &out
}

func (u ServiceUse) normalized() ServiceUse {
	if u.Usage <= 0 {
		return ServiceUse{Usage: u.Usage}
	}
	return ServiceUse{Usage: u.Usage, Satisfaction: copyInt(u.Satisfaction)}
}

func (d DetailUse) normalized() DetailUse {
	if !d.Used {
		return DetailUse{}
	}
	return DetailUse{Used: true, Satisfaction: copyInt(d.Satisfaction)}
}

func (s ElderlySurvey) normalize(now time.Time, newID func() string) Record {
	out := s
	out.ID = orNewID(s.ID, newID)
	out.Name = strings.TrimSpace(s.Name)
	out.Residence = strings.TrimSpace(s.Residence)
	out.ServiceMonths = strings.TrimSpace(s.ServiceMonths)
	out.Organization = strings.TrimSpace(s.Organization)

	out.ServiceUsage = ServiceUsage{
		Safety:    s.ServiceUsage.Safety.normalized(),
		Social:    s.ServiceUsage.Social.normalized(),
		Education: s.ServiceUsage.Education.normalized(),
		Daily:     s.ServiceUsage.Daily.normalized(),
		Linkage:   s.ServiceUsage.Linkage.normalized(),
	}
	out.DetailServices.Conversation = s.DetailServices.Conversation.normalized()
	out.DetailServices.Housework = s.DetailServices.Housework.normalized()
	out.DetailServices.Meal = s.DetailServices.Meal.normalized()
	out.DetailServices.Outing = s.DetailServices.Outing.normalized()
	out.DetailServices.Counseling = s.DetailServices.Counseling.normalized()

	out.AdditionalOpinions.MostSatisfiedService = s.AdditionalOpinions.MostSatisfiedService.normalized()
	out.AdditionalOpinions.Improvements = s.AdditionalOpinions.Improvements.normalized()
	out.AdditionalOpinions.AdditionalServices = s.AdditionalOpinions.AdditionalServices.normalized()

	out.CreatedAt = orNow(s.CreatedAt, now)
	out.UpdatedAt = orNow(s.UpdatedAt, now)
	return &out
}

func (d InventoryDistribution) normalize(now time.Time, newID func() string) Record {
	out := d
	out.ID = orNewID(d.ID, newID)
	out.Organization = strings.TrimSpace(d.Organization)
	out.Contact = strings.TrimSpace(d.Contact)
	out.Phone = strings.TrimSpace(d.Phone)
	out.Signature = strings.TrimSpace(d.Signature)
	out.CreatedAt = orNow(d.CreatedAt, now)
	return &out
}

func (s InventorySummary) normalize(now time.Time, _ func() string) Record {
	out := s
	out.ID = SummaryKey
	out.LastUpdated = orNow(s.LastUpdated, now)
	return &out
}

func (o Organization) normalize(now time.Time, newID func() string) Record {
	out := o
	out.ID = orNewID(o.ID, newID)
	out.Name = strings.TrimSpace(o.Name)
	out.Region = strings.TrimSpace(o.Region)
	out.CreatedAt = orNow(o.CreatedAt, now)
	return &out
}

func (d Document) normalize(now time.Time, newID func() string) Record {
	out := d
	out.ID = orNewID(d.ID, newID)
	out.Name = strings.TrimSpace(d.Name)
	out.Category = strings.TrimSpace(d.Category)
	out.Uploader = strings.TrimSpace(d.Uploader)
	if out.UploadDate == "" {
		out.UploadDate = now.Format(time.RFC3339)
	}
	out.CreatedAt = orNow(d.CreatedAt, now)
	return &out
}
