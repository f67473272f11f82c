package types

import "time"

// Record is implemented by every entity kind. Key is the immutable identity
// of the record within its table.
type Record interface {
	Key() string
	Kind() Kind
}

// OfficialSurvey is one response to the official-staff survey. Surveys arrive
// one at a time from the form or in bulk from spreadsheet imports.
type OfficialSurvey struct {
	ID             string     `json:"id"`
	Department     string     `json:"department" validate:"required"`
	Position       string     `json:"position" validate:"required"`
	Experience     string     `json:"experience" validate:"required"`
	Necessity      int        `json:"necessity" validate:"min=1,max=5"`
	Sufficiency    int        `json:"sufficiency" validate:"min=1,max=5"`
	NeededServices StringList `json:"neededServices" validate:"max=2"`
	Effect         string     `json:"effect" validate:"required"`
	Problem        string     `json:"problem" validate:"required"`
	Priority       string     `json:"priority" validate:"required"`
	Knowledge      string     `json:"knowledge" validate:"required"`
	Description    string     `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (s OfficialSurvey) Key() string { return s.ID }
func (s OfficialSurvey) Kind() Kind  { return KindOfficialSurveys }

// ServiceUse is the usage count and satisfaction score for one of the five
// care services. Satisfaction is only meaningful when Usage > 0.
type ServiceUse struct {
	Usage        int  `json:"usage" validate:"min=0"`
	Satisfaction *int `json:"satisfaction,omitempty" validate:"omitempty,min=1,max=5"`
}

// ServiceUsage groups the five care services.
type ServiceUsage struct {
	Safety    ServiceUse `json:"safety"`
	Social    ServiceUse `json:"social"`
	Education ServiceUse `json:"education"`
	Daily     ServiceUse `json:"daily"`
	Linkage   ServiceUse `json:"linkage"`
}

// DetailUse records whether a detail service was used and, if so, an
// optional 1-4 satisfaction score.
type DetailUse struct {
	Used         bool `json:"used"`
	Satisfaction *int `json:"satisfaction,omitempty" validate:"omitempty,min=1,max=4"`
}

// DetailServices groups the five detail services plus free-text complaints.
type DetailServices struct {
	Conversation     DetailUse `json:"conversation"`
	Housework        DetailUse `json:"housework"`
	Meal             DetailUse `json:"meal"`
	Outing           DetailUse `json:"outing"`
	Counseling       DetailUse `json:"counseling"`
	ComplaintService string    `json:"complaintService,omitempty"`
	ComplaintReason  string    `json:"complaintReason,omitempty"`
}

// OverallEvaluation holds five 1-5 scores.
type OverallEvaluation struct {
	DesiredService      int `json:"desiredService" validate:"min=1,max=5"`
	SufficientService   int `json:"sufficientService" validate:"min=1,max=5"`
	LifeHelp            int `json:"lifeHelp" validate:"min=1,max=5"`
	Accessibility       int `json:"accessibility" validate:"min=1,max=5"`
	OverallSatisfaction int `json:"overallSatisfaction" validate:"min=1,max=5"`
}

// LifeChanges holds eight 1-5 scores.
type LifeChanges struct {
	Loneliness       int `json:"loneliness" validate:"min=1,max=5"`
	Safety           int `json:"safety" validate:"min=1,max=5"`
	Learning         int `json:"learning" validate:"min=1,max=5"`
	Economic         int `json:"economic" validate:"min=1,max=5"`
	Social           int `json:"social" validate:"min=1,max=5"`
	Health           int `json:"health" validate:"min=1,max=5"`
	Convenience      int `json:"convenience" validate:"min=1,max=5"`
	LifeSatisfaction int `json:"lifeSatisfaction" validate:"min=1,max=5"`
}

// AdditionalOpinions holds multi-select answers, each capped at four picks.
type AdditionalOpinions struct {
	MostSatisfiedService    StringList `json:"mostSatisfiedService,omitempty" validate:"max=4"`
	Improvements            StringList `json:"improvements" validate:"max=4"`
	ImprovementsOther       string     `json:"improvementsOther,omitempty"`
	AdditionalServices      StringList `json:"additionalServices" validate:"max=4"`
	AdditionalServicesOther string     `json:"additionalServicesOther,omitempty"`
}

// ElderlySurvey is one beneficiary interview.
type ElderlySurvey struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name" validate:"required"`
	Gender             string             `json:"gender" validate:"oneof=male female"`
	Age                int                `json:"age" validate:"min=65,max=120"`
	Residence          string             `json:"residence" validate:"required"`
	ServiceMonths      string             `json:"serviceMonths" validate:"required"`
	CareType           string             `json:"careType" validate:"oneof=general intensive specialized"`
	ServiceUsage       ServiceUsage       `json:"serviceUsage"`
	DetailServices     DetailServices     `json:"detailServices"`
	OverallEvaluation  OverallEvaluation  `json:"overallEvaluation"`
	LifeChanges        LifeChanges        `json:"lifeChanges"`
	AdditionalOpinions AdditionalOpinions `json:"additionalOpinions"`
	Organization       string             `json:"organization" validate:"required"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

func (s ElderlySurvey) Key() string { return s.ID }
func (s ElderlySurvey) Kind() Kind  { return KindElderlySurveys }

// InventoryDistribution is one hand-off of items to an organization.
type InventoryDistribution struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date" validate:"required"`
	Organization string    `json:"organization" validate:"required"`
	Contact      string    `json:"contact" validate:"required"`
	Phone        string    `json:"phone" validate:"required"`
	Elderly      int       `json:"elderly" validate:"min=0"`
	Staff        int       `json:"staff" validate:"min=0"`
	Distributed  int       `json:"distributed" validate:"min=1"`
	Signature    string    `json:"signature" validate:"required"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (d InventoryDistribution) Key() string { return d.ID }
func (d InventoryDistribution) Kind() Kind  { return KindInventoryDistributions }

// InventorySummary is the singleton stock summary. Its key is always
// SummaryKey regardless of what the caller supplies.
type InventorySummary struct {
	ID               string    `json:"id,omitempty"`
	TotalStock       int       `json:"totalStock" validate:"min=0"`
	TotalDistributed int       `json:"totalDistributed" validate:"min=0"`
	Remaining        int       `json:"remaining" validate:"min=0"`
	DistributionRate float64   `json:"distributionRate" validate:"min=0,max=100"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

func (s InventorySummary) Key() string { return SummaryKey }
func (s InventorySummary) Kind() Kind  { return KindInventorySummary }

// Organization types.
const (
	OrgWelfareCenter   = "welfare_center"
	OrgSeniorCenter    = "senior_center"
	OrgServiceProvider = "service_provider"
	OrgOther           = "other"
)

// Organization is reference data for visited institutions.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Region    string    `json:"region" validate:"required"`
	Type      string    `json:"type" validate:"oneof=welfare_center senior_center service_provider other"`
	Contact   string    `json:"contact,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (o Organization) Key() string { return o.ID }
func (o Organization) Kind() Kind  { return KindOrganizations }

// Document is an uploaded file. FileData holds the file as a data URL
// ("data:<mime>;base64,<payload>").
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Category    string    `json:"category" validate:"required"`
	FileType    string    `json:"fileType" validate:"required"`
	FileSize    int64     `json:"fileSize" validate:"min=0"`
	UploadDate  string    `json:"uploadDate" validate:"required"`
	Uploader    string    `json:"uploader" validate:"required"`
	Description string    `json:"description,omitempty"`
	FileData    string    `json:"fileData"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (d Document) Key() string { return d.ID }
func (d Document) Kind() Kind  { return KindDocuments }

// DefaultDocumentCategories is the category set a new database starts with.
var DefaultDocumentCategories = []string{
	"01_계획안",
	"02_공문발송",
	"03_설문조사",
	"04_물품관리(업체)",
	"05_수행기관배포",
	"06_신청기관",
	"07_결과보고",
}
