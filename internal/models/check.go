package models

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Problem is one structural defect found in an assessment definition.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CheckError lists every problem found by CheckAssessment.
type CheckError struct {
	Problems []Problem
}

func (e *CheckError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+" "+p.Message)
	}
	return "invalid assessment: " + strings.Join(parts, "; ")
}

var (
	checkerOnce sync.Once
	checker     *validator.Validate
)

func structChecker() *validator.Validate {
	checkerOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := registerRules(v, fieldRules); err != nil {
			panic(err)
		}
		v.RegisterStructValidation(questionRules, Question{})
		checker = v
	})
	return checker
}

var fieldRules = map[string]validator.Func{
	"question_type": func(fl validator.FieldLevel) bool {
		return ValidQuestionType(QuestionType(fl.Field().String()))
	},
	"operator": func(fl validator.FieldLevel) bool {
		_, ok := LookupOperator(Operator(fl.Field().String()))
		return ok
	},
	"pattern_syntax": func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	},
}

func registerRules(v *validator.Validate, rules map[string]validator.Func) error {
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q rule: %w", tag, err)
		}
	}
	return nil
}

func questionRules(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(Question)
	if !ok {
		return
	}
	if IsChoiceType(q.Type) && len(q.Options) == 0 {
		sl.ReportError(q.Options, "options", "Options", "choice_options", "")
	}
	r := q.Validation
	if r.MinLength != nil && r.MaxLength != nil && *r.MinLength > *r.MaxLength {
		sl.ReportError(r.MaxLength, "validation.maxLength", "MaxLength", "not_below_min", "")
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		sl.ReportError(r.Max, "validation.max", "Max", "not_below_min", "")
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "question_type":
		return fmt.Sprintf("%q is not a supported question type", fe.Value())
	case "operator":
		return fmt.Sprintf("%q is not a supported operator", fe.Value())
	case "pattern_syntax":
		return "is not a valid regular expression"
	case "gte":
		return "must be at least " + fe.Param()
	case "choice_options":
		return "must list at least one option for choice questions"
	case "not_below_min":
		return "must not be lower than the minimum"
	default:
		return "failed " + fe.Tag()
	}
}

// CheckAssessment reports structural defects: missing ids, unknown types or
// operators, choice questions without options, inverted bounds, invalid
// patterns, duplicate ids, non-dense order values and conditionals that do
// not reference an earlier question.
func CheckAssessment(a Assessment) error {
	var problems []Problem
	if err := structChecker().Struct(a); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				field := strings.TrimPrefix(fe.Namespace(), "Assessment.")
				problems = append(problems, Problem{Field: field, Message: describe(fe)})
			}
		} else {
			problems = append(problems, Problem{Field: "assessment", Message: err.Error()})
		}
	}

	sectionIDs := map[string]bool{}
	questionIDs := map[string]bool{}
	sectionOrders := make([]int, 0, len(a.Sections))
	for si, s := range a.Sections {
		sp := fmt.Sprintf("sections[%d]", si)
		if s.ID != "" && sectionIDs[s.ID] {
			problems = append(problems, Problem{Field: sp + ".id", Message: "duplicates another section id"})
		}
		sectionIDs[s.ID] = true
		sectionOrders = append(sectionOrders, s.Order)

		questionOrders := make([]int, 0, len(s.Questions))
		for qi, q := range s.Questions {
			qp := fmt.Sprintf("%s.questions[%d]", sp, qi)
			if q.ID != "" && questionIDs[q.ID] {
				problems = append(problems, Problem{Field: qp + ".id", Message: "duplicates another question id"})
			}
			if q.Conditional != nil && !questionIDs[q.Conditional.QuestionID] {
				problems = append(problems, Problem{Field: qp + ".conditional.questionId", Message: "must reference an earlier question"})
			}
			questionIDs[q.ID] = true
			questionOrders = append(questionOrders, q.Order)
		}
		if !isDense(questionOrders) {
			problems = append(problems, Problem{Field: sp + ".questions", Message: "order values must be 0..n-1"})
		}
	}
	if !isDense(sectionOrders) {
		problems = append(problems, Problem{Field: "sections", Message: "order values must be 0..n-1"})
	}

	if len(problems) > 0 {
		return &CheckError{Problems: problems}
	}
	return nil
}

func isDense(orders []int) bool {
	sorted := append([]int(nil), orders...)
	sort.Ints(sorted)
	for i, o := range sorted {
		if o != i {
			return false
		}
	}
	return true
}

// Normalize sorts sections and questions by their Order fields (stable) and
// renumbers them densely. Use it on definitions received from outside.
func (a *Assessment) Normalize() {
	sort.SliceStable(a.Sections, func(i, j int) bool { return a.Sections[i].Order < a.Sections[j].Order })
	for i := range a.Sections {
		qs := a.Sections[i].Questions
		sort.SliceStable(qs, func(x, y int) bool { return qs[x].Order < qs[y].Order })
	}
	a.Renumber()
}
