package services

import (
	"regexp"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/utils"
)

// Validator checks answers against question validation rules. Messages are
// rendered in Locale; the zero value uses English.
//
// Only the rule fields applicable to the question type are checked; the
// others are ignored even when set.
type Validator struct {
	Locale string
}

// Validate checks one answer with English messages. resp may be nil.
func Validate(q models.Question, resp *models.QuestionResponse) []string {
	return Validator{}.Validate(q, resp)
}

// ValidateAll validates every visible question with English messages.
func ValidateAll(a models.Assessment, responses []models.QuestionResponse) map[string][]string {
	return Validator{}.ValidateAll(a, responses)
}

// Validate returns every violated constraint for the answer to q, in check
// order. An empty result means the answer is acceptable. An unanswered
// optional question is always acceptable. Numeric text on a numeric question
// is checked as a number; any other kind mismatch is a single violation.
func (v Validator) Validate(q models.Question, resp *models.QuestionResponse) []string {
	rule := q.Validation
	var value models.Value
	if resp != nil {
		value = resp.Value
	}

	if value.IsEmpty() {
		if rule.Required && models.Applies(q.Type, models.FieldRequired) {
			return []string{v.orCustom(rule, "validation.required")}
		}
		return nil
	}

	value, ok := models.CoerceFor(q.Type, value)
	if !ok {
		return []string{utils.T(v.Locale, "validation.type")}
	}

	var out []string
	switch value.Kind() {
	case models.KindText:
		out = v.checkText(q.Type, rule, value.Text())
	case models.KindNumber:
		out = v.checkNumber(q.Type, rule, value.Number())
	case models.KindChoices:
		out = v.checkChoices(q.Type, rule, len(value.Choices()))
	case models.KindFile:
		// presence is all the engine checks for uploads
	}
	return out
}

// ValidateAll returns the violations of every currently visible question,
// keyed by question id. Hidden questions are skipped: a candidate cannot
// answer them, so they never block submission.
func (v Validator) ValidateAll(a models.Assessment, responses []models.QuestionResponse) map[string][]string {
	out := map[string][]string{}
	for _, section := range visibleBySection(a, responses) {
		v.collect(out, section, responses)
	}
	return out
}

// ValidateSection is ValidateAll restricted to the section at index.
func (v Validator) ValidateSection(a models.Assessment, index int, responses []models.QuestionResponse) map[string][]string {
	out := map[string][]string{}
	sections := visibleBySection(a, responses)
	if index < 0 || index >= len(sections) {
		return out
	}
	v.collect(out, sections[index], responses)
	return out
}

func (v Validator) collect(out map[string][]string, questions []models.Question, responses []models.QuestionResponse) {
	for _, q := range questions {
		var resp *models.QuestionResponse
		if qr, ok := models.FindResponse(responses, q.ID); ok {
			resp = &qr
		}
		if msgs := v.Validate(q, resp); len(msgs) > 0 {
			out[q.ID] = msgs
		}
	}
}

func (v Validator) checkText(t models.QuestionType, rule models.ValidationRule, s string) []string {
	var out []string
	n := utf8.RuneCountInString(s)
	if rule.MinLength != nil && models.Applies(t, models.FieldMinLength) && n < *rule.MinLength {
		out = append(out, utils.Tf(v.Locale, "validation.min_length", *rule.MinLength))
	}
	if rule.MaxLength != nil && models.Applies(t, models.FieldMaxLength) && n > *rule.MaxLength {
		out = append(out, utils.Tf(v.Locale, "validation.max_length", *rule.MaxLength))
	}
	if rule.Pattern != "" && models.Applies(t, models.FieldPattern) {
		// A pattern that does not compile is reported by CheckAssessment, not here.
		if re, err := compilePattern(rule.Pattern); err == nil && !re.MatchString(s) {
			out = append(out, v.orCustom(rule, "validation.pattern"))
		}
	}
	return out
}

func (v Validator) checkNumber(t models.QuestionType, rule models.ValidationRule, n float64) []string {
	var out []string
	if rule.Min != nil && models.Applies(t, models.FieldMin) && n < *rule.Min {
		out = append(out, utils.Tf(v.Locale, "validation.min", formatNumber(*rule.Min)))
	}
	if rule.Max != nil && models.Applies(t, models.FieldMax) && n > *rule.Max {
		out = append(out, utils.Tf(v.Locale, "validation.max", formatNumber(*rule.Max)))
	}
	return out
}

func (v Validator) checkChoices(t models.QuestionType, rule models.ValidationRule, count int) []string {
	var out []string
	if rule.MinLength != nil && models.Applies(t, models.FieldMinLength) && count < *rule.MinLength {
		out = append(out, utils.Tf(v.Locale, "validation.min_items", *rule.MinLength))
	}
	if rule.MaxLength != nil && models.Applies(t, models.FieldMaxLength) && count > *rule.MaxLength {
		out = append(out, utils.Tf(v.Locale, "validation.max_items", *rule.MaxLength))
	}
	return out
}

func (v Validator) orCustom(rule models.ValidationRule, key string) string {
	if rule.CustomMessage != "" {
		return rule.CustomMessage
	}
	return utils.T(v.Locale, key)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var patternCache sync.Map // pattern -> *regexp.Regexp

func compilePattern(p string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	patternCache.Store(p, re)
	return re, nil
}
