package models

// Clone returns a deep copy of a so callers can derive a new value without aliasing.
func (a Assessment) Clone() Assessment {
	out := a
	if a.Sections != nil {
		out.Sections = make([]Section, len(a.Sections))
		for i, s := range a.Sections {
			out.Sections[i] = s.Clone()
		}
	}
	return out
}

func (s Section) Clone() Section {
	out := s
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	return out
}

func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = make([]string, len(q.Options))
		copy(out.Options, q.Options)
	}
	out.Validation = q.Validation.Clone()
	if q.Conditional != nil {
		c := *q.Conditional
		c.Value = c.Value.Clone()
		out.Conditional = &c
	}
	return out
}

func (r ValidationRule) Clone() ValidationRule {
	out := r
	if r.MinLength != nil {
		n := *r.MinLength
		out.MinLength = &n
	}
	if r.MaxLength != nil {
		n := *r.MaxLength
		out.MaxLength = &n
	}
	if r.Min != nil {
		n := *r.Min
		out.Min = &n
	}
	if r.Max != nil {
		n := *r.Max
		out.Max = &n
	}
	return out
}

// Renumber rewrites section and question Order fields as dense 0..n-1 sequences
// following slice position.
func (a *Assessment) Renumber() {
	for i := range a.Sections {
		a.Sections[i].Order = i
		a.Sections[i].Renumber()
	}
}

// DropBrokenConditionals clears every conditional rule that does not name a
// question earlier in flattened order and returns how many were cleared.
func (a *Assessment) DropBrokenConditionals() int {
	seen := make(map[string]bool)
	dropped := 0
	for si := range a.Sections {
		for qi := range a.Sections[si].Questions {
			q := &a.Sections[si].Questions[qi]
			if q.Conditional != nil && !seen[q.Conditional.QuestionID] {
				q.Conditional = nil
				dropped++
			}
			seen[q.ID] = true
		}
	}
	return dropped
}

func (s *Section) Renumber() {
	for i := range s.Questions {
		s.Questions[i].Order = i
	}
}

// Questions returns every question in flattened order: sections in order,
// questions within a section in order.
func (a Assessment) Questions() []Question {
	var out []Question
	for _, s := range a.Sections {
		out = append(out, s.Questions...)
	}
	return out
}

// QuestionCount is the number of questions across all sections.
func (a Assessment) QuestionCount() int {
	n := 0
	for _, s := range a.Sections {
		n += len(s.Questions)
	}
	return n
}

// SectionIndex returns the position of the section with id, or -1.
func (a Assessment) SectionIndex(id string) int {
	for i, s := range a.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// QuestionIndex returns the position of the question with id inside the section, or -1.
func (s Section) QuestionIndex(id string) int {
	for i, q := range s.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// FindQuestion locates a question anywhere in the assessment.
func (a Assessment) FindQuestion(id string) (Question, bool) {
	for _, s := range a.Sections {
		if i := s.QuestionIndex(id); i >= 0 {
			return s.Questions[i], true
		}
	}
	return Question{}, false
}

// QuestionsBefore returns the questions that precede id in flattened order.
// It returns nil when id is not part of the assessment.
func (a Assessment) QuestionsBefore(id string) []Question {
	var out []Question
	for _, s := range a.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				if out == nil {
					out = []Question{}
				}
				return out
			}
			out = append(out, q)
		}
	}
	return nil
}
