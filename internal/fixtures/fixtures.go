// Package fixtures builds valid sample records for tests.
package fixtures

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// Epoch is the creation time stamped on every fixture.
var Epoch = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

func score(v int) *int { return &v }

// OfficialSurvey returns a valid official survey keyed by id.
func OfficialSurvey(id, department string) types.OfficialSurvey {
	return types.OfficialSurvey{
		ID:             id,
		Department:     department,
		Position:       "주무관",
		Experience:     "5년",
		Necessity:      4,
		Sufficiency:    3,
		NeededServices: types.StringList{"안전확인", "생활지원"},
		Effect:         "어르신 안전 확보",
		Problem:        "인력 부족",
		Priority:       "전문인력 확충",
		Knowledge:      "높음",
		CreatedAt:      Epoch,
	}
}

// ElderlySurvey returns a valid elderly survey keyed by id.
func ElderlySurvey(id, organization string) types.ElderlySurvey {
	return types.ElderlySurvey{
		ID:            id,
		Name:          "홍길동",
		Gender:        "female",
		Age:           78,
		Residence:     "남구",
		ServiceMonths: "12",
		CareType:      "general",
		ServiceUsage: types.ServiceUsage{
			Safety:    types.ServiceUse{Usage: 4, Satisfaction: score(5)},
			Social:    types.ServiceUse{Usage: 2, Satisfaction: score(4)},
			Education: types.ServiceUse{Usage: 0},
			Daily:     types.ServiceUse{Usage: 1, Satisfaction: score(3)},
			Linkage:   types.ServiceUse{Usage: 0},
		},
		DetailServices: types.DetailServices{
			Conversation: types.DetailUse{Used: true, Satisfaction: score(4)},
			Meal:         types.DetailUse{Used: true},
		},
		OverallEvaluation: types.OverallEvaluation{
			DesiredService: 4, SufficientService: 4, LifeHelp: 5, Accessibility: 3, OverallSatisfaction: 5,
		},
		LifeChanges: types.LifeChanges{
			Loneliness: 4, Safety: 5, Learning: 3, Economic: 2,
			Social: 4, Health: 4, Convenience: 5, LifeSatisfaction: 5,
		},
		AdditionalOpinions: types.AdditionalOpinions{
			MostSatisfiedService: types.StringList{"safety"},
			Improvements:         types.StringList{"more visits"},
			AdditionalServices:   types.StringList{},
		},
		Organization: organization,
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
}

// Distribution returns a valid inventory distribution keyed by id.
func Distribution(id, organization string, distributed int) types.InventoryDistribution {
	return types.InventoryDistribution{
		ID:           id,
		Date:         Epoch,
		Organization: organization,
		Contact:      "김담당",
		Phone:        "010-0000-0000",
		Elderly:      20,
		Staff:        3,
		Distributed:  distributed,
		Signature:    "김수령",
		CreatedAt:    Epoch,
	}
}

// Organization returns a valid organization keyed by id.
func Organization(id, region, orgType string) types.Organization {
	return types.Organization{
		ID:        id,
		Name:      fmt.Sprintf("기관 %s", id),
		Region:    region,
		Type:      orgType,
		CreatedAt: Epoch,
	}
}

// Document returns a valid document keyed by id in the given category.
func Document(id, category string) types.Document {
	data := []byte("hello " + id)
	return types.Document{
		ID:         id,
		Name:       id + ".txt",
		Category:   category,
		FileType:   "text/plain",
		FileSize:   int64(len(data)),
		UploadDate: Epoch.Format(time.RFC3339),
		Uploader:   "관리자",
		FileData:   types.EncodeFileData("text/plain", data),
		CreatedAt:  Epoch,
	}
}

// Summary returns a valid summary derived from the two totals.
func Summary(totalStock, totalDistributed int) types.InventorySummary {
	return types.NewInventorySummary(totalStock, totalDistributed, Epoch)
}
