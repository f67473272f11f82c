package excel

import (
	"io"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

var genderLabels = map[string]string{
	"male":   "남성",
	"female": "여성",
}

var careTypeLabels = map[string]string{
	"general":     "일반돌봄",
	"intensive":   "중점돌봄",
	"specialized": "특화돌봄",
}

var elderlyHeaders = []string{
	"이름", "성별", "연령", "거주지역", "이용기간", "돌봄유형", "방문기관",
	"안전확인_이용", "안전확인_만족도",
	"사회참여_이용", "사회참여_만족도",
	"생활교육_이용", "생활교육_만족도",
	"일상생활지원_이용", "일상생활지원_만족도",
	"연계서비스_이용", "연계서비스_만족도",
	"전체만족도", "생활만족도", "등록일",
}

var distributionHeaders = []string{
	"반출일자", "방문기관", "담당자", "연락처", "참여어르신", "참여종사자",
	"반출수량", "수령확인자", "비고", "등록일",
}

func label(labels map[string]string, v string) string {
	if l, ok := labels[v]; ok {
		return l
	}
	return v
}

// satisfaction renders an optional score; unanswered is an empty cell.
func satisfaction(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}

// WriteElderlySurveys writes a one-row-per-interview report workbook.
func WriteElderlySurveys(w io.Writer, surveys []types.ElderlySurvey) error {
	rows := make([][]any, len(surveys))
	for i, s := range surveys {
		u := s.ServiceUsage
		rows[i] = []any{
			s.Name, label(genderLabels, s.Gender), s.Age, s.Residence, s.ServiceMonths,
			label(careTypeLabels, s.CareType), s.Organization,
			u.Safety.Usage, satisfaction(u.Safety.Satisfaction),
			u.Social.Usage, satisfaction(u.Social.Satisfaction),
			u.Education.Usage, satisfaction(u.Education.Satisfaction),
			u.Daily.Usage, satisfaction(u.Daily.Satisfaction),
			u.Linkage.Usage, satisfaction(u.Linkage.Satisfaction),
			s.OverallEvaluation.OverallSatisfaction, s.LifeChanges.LifeSatisfaction,
			formatDate(s.CreatedAt),
		}
	}
	return sheet{name: SheetElderlySurveys, headers: elderlyHeaders, rows: rows}.write(w)
}

// WriteInventoryDistributions writes the distribution log workbook.
func WriteInventoryDistributions(w io.Writer, distributions []types.InventoryDistribution) error {
	rows := make([][]any, len(distributions))
	for i, d := range distributions {
		rows[i] = []any{
			formatDate(d.Date), d.Organization, d.Contact, d.Phone, d.Elderly, d.Staff,
			d.Distributed, d.Signature, d.Notes, formatDate(d.CreatedAt),
		}
	}
	return sheet{name: SheetDistributions, headers: distributionHeaders, rows: rows}.write(w)
}
