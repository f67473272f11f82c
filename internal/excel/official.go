package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/caremon/pkg/types"
)

// maxNeededServices caps the multi-select answer to question six.
const maxNeededServices = 2

// unknownKnowledge is recorded when the awareness column is blank.
const unknownKnowledge = "확인불가"

type officialField int

const (
	fieldDepartment officialField = iota
	fieldPosition
	fieldExperience
	fieldNecessity
	fieldSufficiency
	fieldNeededServices
	fieldEffect
	fieldProblem
	fieldPriority
	fieldKnowledge
	fieldDescription
	fieldCreatedAt
)

// officialColumn lists the header spellings accepted for one field: the JSON
// field name, the short Korean label, and the full question text.
type officialColumn struct {
	field    officialField
	label    string
	headers  []string
	required bool
}

var officialColumns = []officialColumn{
	{fieldDepartment, "소속", []string{"department", "1. 귀하의 소속은 어디입니까?"}, true},
	{fieldPosition, "직위", []string{"position", "2. 귀하의 직위/역할은 무엇입니까?"}, true},
	{fieldExperience, "경력", []string{"experience", "3. 현재 업무 경력은 얼마나 됩니까?"}, true},
	{fieldNecessity, "필요성", []string{"necessity", "4. 귀하가 근무하시는 지역의 노인돌봄 서비스 필요성에 대해 어떻게 생각하십니까?"}, true},
	{fieldSufficiency, "충분성", []string{"sufficiency", "5. 현재 지역 내 노인돌봄 서비스가 충분히 제공되고 있다고 생각하십니까?"}, true},
	{fieldNeededServices, "필요서비스", []string{"neededServices", "6. 지역 어르신들이 가장 필요로 하는 서비스는 무엇이라고 생각하십니까? (최대 2개 선택)"}, true},
	{fieldEffect, "가장큰효과", []string{"effect", "7. 노인돌봄 서비스의 가장 큰 효과는 무엇이라고 생각하십니까?"}, true},
	{fieldProblem, "가장큰문제점", []string{"problem", "8. 현재 노인돌봄 서비스 제공에서 가장 큰 문제점은 무엇입니까?"}, true},
	{fieldPriority, "개선우선순위", []string{"priority", "9. 노인돌봄 서비스 개선을 위해 가장 우선적으로 필요한 것은 무엇입니까?"}, true},
	{fieldKnowledge, "인지도", []string{"knowledge", "10. 인지도"}, false},
	{fieldDescription, "서비스설명", []string{"description"}, false},
	{fieldCreatedAt, "등록일", []string{"createdAt"}, false},
}

var necessityScale = map[string]int{
	"매우 필요":  5,
	"필요":     4,
	"보통":     3,
	"불필요":    2,
	"매우 불필요": 1,
}

var sufficiencyScale = map[string]int{
	"매우 충분": 5,
	"충분":    4,
	"보통":    3,
	"부족":    2,
	"매우 부족": 1,
}

// RowError reports a spreadsheet row that could not become a survey. Row is
// the 1-based sheet row; the header is row 1.
type RowError struct {
	Row   int
	Field string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %q is empty", e.Row, e.Field)
}

// ReadOfficialSurveys parses the first sheet of an xlsx workbook into official
// surveys. Headers may be the JSON field names, the short Korean labels, or
// the full question text. Rows missing a required answer are reported in the
// returned RowErrors and left out of the surveys; blank rows are skipped.
// Surveys carry no ID, so the store assigns one on write.
func ReadOfficialSurveys(r io.Reader) ([]types.OfficialSurvey, []RowError, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return []types.OfficialSurvey{}, nil, nil
	}

	index := headerIndex(rows[0])
	surveys := []types.OfficialSurvey{}
	var rowErrs []RowError
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		get := func(f officialField) string {
			col, ok := index[f]
			if !ok || col >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[col])
		}

		valid := true
		for _, c := range officialColumns {
			if c.required && get(c.field) == "" {
				rowErrs = append(rowErrs, RowError{Row: i + 2, Field: c.label})
				valid = false
			}
		}
		if !valid {
			continue
		}

		s := types.OfficialSurvey{
			Department:     get(fieldDepartment),
			Position:       get(fieldPosition),
			Experience:     get(fieldExperience),
			Necessity:      score(get(fieldNecessity), necessityScale),
			Sufficiency:    score(get(fieldSufficiency), sufficiencyScale),
			NeededServices: splitServices(get(fieldNeededServices)),
			Effect:         get(fieldEffect),
			Problem:        get(fieldProblem),
			Priority:       get(fieldPriority),
			Knowledge:      get(fieldKnowledge),
			Description:    get(fieldDescription),
			CreatedAt:      parseDate(get(fieldCreatedAt)),
		}
		if s.Knowledge == "" {
			s.Knowledge = unknownKnowledge
		}
		surveys = append(surveys, s)
	}
	return surveys, rowErrs, nil
}

func headerIndex(header []string) map[officialField]int {
	index := make(map[officialField]int)
	for col, h := range header {
		h = strings.TrimSpace(h)
		for _, c := range officialColumns {
			if _, seen := index[c.field]; seen {
				continue
			}
			if h == c.label || containsFold(c.headers, h) {
				index[c.field] = col
			}
		}
	}
	return index
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// score reads a 1-5 answer given as a number or as a label from scale.
// Anything else is 0, which fails validation on write.
func score(s string, scale map[string]int) int {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n >= 1 && n <= 5 {
			return int(n)
		}
		return 0
	}
	return scale[strings.TrimSpace(s)]
}

func splitServices(s string) types.StringList {
	out := types.StringList{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
		if len(out) == maxNeededServices {
			break
		}
	}
	return out
}

func parseDate(s string) time.Time {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006. 1. 2."} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func officialHeaders() []string {
	headers := make([]string, len(officialColumns))
	for i, c := range officialColumns {
		headers[i] = c.label
	}
	return headers
}

// WriteOfficialSurveys writes surveys as an xlsx workbook under the short
// Korean headers that ReadOfficialSurveys accepts.
func WriteOfficialSurveys(w io.Writer, surveys []types.OfficialSurvey) error {
	rows := make([][]any, len(surveys))
	for i, s := range surveys {
		rows[i] = []any{
			s.Department, s.Position, s.Experience, s.Necessity, s.Sufficiency,
			strings.Join(s.NeededServices, ", "), s.Effect, s.Problem, s.Priority,
			s.Knowledge, s.Description, formatDate(s.CreatedAt),
		}
	}
	return sheet{name: SheetOfficialSurveys, headers: officialHeaders(), rows: rows}.write(w)
}

// WriteOfficialSurveyTemplate writes an import template: the headers, one
// example answer, and an empty row to fill in.
func WriteOfficialSurveyTemplate(w io.Writer) error {
	headers := officialHeaders()
	empty := make([]any, len(headers))
	for i := range empty {
		empty[i] = ""
	}
	example := []any{
		"예시구청", "주무관", "5년", 4, 3, "안전확인, 생활지원", "어르신 안전 확보",
		"인력 부족", "전문인력 확충", "높음", "노인맞춤돌봄서비스는...", "",
	}
	return sheet{name: SheetOfficialSurveys, headers: headers, rows: [][]any{example, empty}}.write(w)
}
