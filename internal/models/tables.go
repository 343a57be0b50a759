package models

// ValidationField names a ValidationRule field the builder may offer for a question type.
type ValidationField string

const (
	FieldRequired  ValidationField = "required"
	FieldMinLength ValidationField = "minLength"
	FieldMaxLength ValidationField = "maxLength"
	FieldMin       ValidationField = "min"
	FieldMax       ValidationField = "max"
	FieldPattern   ValidationField = "pattern"
)

var questionTypes = []QuestionType{SingleChoice, MultiChoice, ShortText, LongText, Numeric, FileUpload}

var applicableFields = map[QuestionType][]ValidationField{
	SingleChoice: {FieldRequired},
	MultiChoice:  {FieldRequired, FieldMinLength, FieldMaxLength},
	ShortText:    {FieldRequired, FieldMinLength, FieldMaxLength, FieldPattern},
	LongText:     {FieldRequired, FieldMinLength, FieldMaxLength},
	Numeric:      {FieldRequired, FieldMin, FieldMax},
	FileUpload:   {FieldRequired},
}

// QuestionTypes lists every supported question type in display order.
func QuestionTypes() []QuestionType {
	out := make([]QuestionType, len(questionTypes))
	copy(out, questionTypes)
	return out
}

func ValidQuestionType(t QuestionType) bool {
	_, ok := applicableFields[t]
	return ok
}

// IsChoiceType reports whether t requires a non-empty option list.
func IsChoiceType(t QuestionType) bool {
	return t == SingleChoice || t == MultiChoice
}

// ApplicableFields returns the validation fields meaningful for t.
func ApplicableFields(t QuestionType) []ValidationField {
	fields := applicableFields[t]
	out := make([]ValidationField, len(fields))
	copy(out, fields)
	return out
}

// Applies reports whether field f is meaningful for question type t.
func Applies(t QuestionType, f ValidationField) bool {
	for _, af := range applicableFields[t] {
		if af == f {
			return true
		}
	}
	return false
}

// SanitizeValidation drops the fields of r that do not apply to t. CustomMessage is kept.
func SanitizeValidation(t QuestionType, r ValidationRule) ValidationRule {
	out := ValidationRule{CustomMessage: r.CustomMessage}
	if Applies(t, FieldRequired) {
		out.Required = r.Required
	}
	if Applies(t, FieldMinLength) && r.MinLength != nil {
		n := *r.MinLength
		out.MinLength = &n
	}
	if Applies(t, FieldMaxLength) && r.MaxLength != nil {
		n := *r.MaxLength
		out.MaxLength = &n
	}
	if Applies(t, FieldMin) && r.Min != nil {
		n := *r.Min
		out.Min = &n
	}
	if Applies(t, FieldMax) && r.Max != nil {
		n := *r.Max
		out.Max = &n
	}
	if Applies(t, FieldPattern) {
		out.Pattern = r.Pattern
	}
	return out
}

// Operator compares a prerequisite answer against a ConditionalRule value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not-equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater-than"
	OpLessThan    Operator = "less-than"
)

// OperatorInfo is the display metadata for an Operator.
type OperatorInfo struct {
	Operator Operator `json:"operator"`
	Label    string   `json:"label"`
	Symbol   string   `json:"symbol"`
}

var operators = []OperatorInfo{
	{Operator: OpEquals, Label: "Equals", Symbol: "="},
	{Operator: OpNotEquals, Label: "Not equals", Symbol: "≠"},
	{Operator: OpContains, Label: "Contains", Symbol: "∋"},
	{Operator: OpGreaterThan, Label: "Greater than", Symbol: ">"},
	{Operator: OpLessThan, Label: "Less than", Symbol: "<"},
}

// Operators lists the supported conditional operators.
func Operators() []OperatorInfo {
	out := make([]OperatorInfo, len(operators))
	copy(out, operators)
	return out
}

// LookupOperator returns the display metadata for op.
func LookupOperator(op Operator) (OperatorInfo, bool) {
	for _, info := range operators {
		if info.Operator == op {
			return info, true
		}
	}
	return OperatorInfo{}, false
}
