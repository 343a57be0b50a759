package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the shape held by a Value.
type ValueKind string

const (
	KindNone    ValueKind = ""
	KindText    ValueKind = "text"
	KindChoices ValueKind = "choices"
	KindNumber  ValueKind = "number"
	KindFile    ValueKind = "file"
)

// FileRef is an opaque handle to an uploaded file. The engine never reads its content.
type FileRef struct {
	Name     string `json:"name"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Value is an answer: text, a list of selected options, a number or a file handle.
// The zero Value carries no answer.
//
// On the wire a Value is a JSON string, array of strings, number or object
// (file handle); null decodes to the zero Value.
type Value struct {
	kind    ValueKind
	text    string
	choices []string
	number  float64
	file    *FileRef
}

func TextValue(s string) Value { return Value{kind: KindText, text: s} }

func ChoicesValue(choices ...string) Value {
	cp := make([]string, len(choices))
	copy(cp, choices)
	return Value{kind: KindChoices, choices: cp}
}

func NumberValue(n float64) Value { return Value{kind: KindNumber, number: n} }

func FileValue(f FileRef) Value { return Value{kind: KindFile, file: &f} }

// KindFor returns the value kind a question type produces.
func KindFor(t QuestionType) ValueKind {
	switch t {
	case MultiChoice:
		return KindChoices
	case Numeric:
		return KindNumber
	case FileUpload:
		return KindFile
	case SingleChoice, ShortText, LongText:
		return KindText
	default:
		return KindNone
	}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) Text() string    { return v.text }
func (v Value) Number() float64 { return v.number }

func (v Value) Choices() []string {
	if v.choices == nil {
		return nil
	}
	cp := make([]string, len(v.choices))
	copy(cp, v.choices)
	return cp
}

func (v Value) File() *FileRef {
	if v.file == nil {
		return nil
	}
	f := *v.file
	return &f
}

// IsEmpty reports whether v counts as "no answer": absent, blank text,
// no selected options or no file. Numbers are always answers, including 0.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindText:
		return strings.TrimSpace(v.text) == ""
	case KindChoices:
		return len(v.choices) == 0
	case KindNumber:
		return false
	case KindFile:
		return v.file == nil
	default:
		return true
	}
}

// CoerceFor converts v to the kind that questions of type t take. Numeric
// text becomes a number; any other mismatch reports false. Empty values pass
// unchanged.
func CoerceFor(t QuestionType, v Value) (Value, bool) {
	want := KindFor(t)
	if v.IsEmpty() || want == KindNone || v.kind == want {
		return v, true
	}
	if want == KindNumber {
		if n, ok := v.AsNumber(); ok {
			return NumberValue(n), true
		}
	}
	return v, false
}

// AsNumber coerces v to a number. Text is parsed; other kinds do not convert.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.number, true
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// String renders v as display text.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindChoices:
		return strings.Join(v.choices, ", ")
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindFile:
		if v.file != nil {
			return v.file.Name
		}
	}
	return ""
}

// Equal compares by value; text and numbers compare numerically when the text parses.
func (v Value) Equal(o Value) bool {
	switch {
	case v.kind == KindText && o.kind == KindText:
		return v.text == o.text
	case v.kind == KindNumber || o.kind == KindNumber:
		a, ok := v.AsNumber()
		if !ok {
			return false
		}
		b, ok := o.AsNumber()
		return ok && a == b
	default:
		return false
	}
}

func (v Value) Clone() Value {
	out := v
	if v.choices != nil {
		out.choices = v.Choices()
	}
	out.file = v.File()
	return out
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindChoices:
		if v.choices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.choices)
	case KindNumber:
		return json.Marshal(v.number)
	case KindFile:
		return json.Marshal(v.file)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*v = Value{}
		return nil
	}
	switch b[0] {
	case 'n':
		*v = Value{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var list []*string
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("choices value: %w", err)
		}
		choices := make([]string, 0, len(list))
		for i, c := range list {
			if c == nil {
				return fmt.Errorf("choices value: null at index %d", i)
			}
			choices = append(choices, *c)
		}
		*v = ChoicesValue(choices...)
	case '{':
		var f FileRef
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("file value: %w", err)
		}
		*v = FileValue(f)
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("unsupported answer value %s", string(b))
		}
		*v = NumberValue(n)
	}
	return nil
}
