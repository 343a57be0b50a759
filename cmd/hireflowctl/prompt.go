package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/soaringjerry/hireflow/internal/models"
	"github.com/soaringjerry/hireflow/internal/services"
)

var errInputClosed = errors.New("input ended before submission, draft saved")

// runSession walks the candidate through every section, one visible
// question at a time. An empty line keeps the current answer. Blocked
// navigation re-asks only the questions with violations.
func runSession(ctx context.Context, s *services.Session, in io.Reader, out io.Writer) (*models.AssessmentResponse, error) {
	sc := bufio.NewScanner(in)
	if ok, err := s.ResumeDraft(ctx); err != nil {
		fmt.Fprintln(out, "could not load draft:", err)
	} else if ok {
		fmt.Fprintf(out, "resuming draft at section %d\n", s.CurrentSection()+1)
	}
	if s.SectionCount() == 0 {
		return s.Submit(ctx)
	}

	var only map[string][]string
	for {
		a := s.Assessment()
		sec := a.Sections[s.CurrentSection()]
		fmt.Fprintf(out, "\n== %s (%d/%d, %.0f%% done) ==\n", sec.Title, s.CurrentSection()+1, s.SectionCount(), s.Progress())

		for _, q := range sec.Questions {
			if !visibleNow(s, q.ID) {
				continue
			}
			if only != nil && only[q.ID] == nil {
				continue
			}
			if err := ask(ctx, s, sc, out, q, only[q.ID]); err != nil {
				return nil, err
			}
		}
		only = nil

		var err error
		if s.IsLastSection() {
			var saved *models.AssessmentResponse
			saved, err = s.Submit(ctx)
			if err == nil {
				return saved, nil
			}
		} else {
			err = s.AdvanceSection()
			if err == nil {
				if derr := s.SaveDraft(ctx); derr != nil {
					fmt.Fprintln(out, "draft not saved:", derr)
				}
				continue
			}
		}

		var verr *services.ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		fmt.Fprintln(out, verr.Message)
		only = verr.Violations
		// a submit may be blocked by an earlier section
		if idx := firstSectionWith(a, only); idx >= 0 {
			for s.CurrentSection() > idx {
				_ = s.RetreatSection()
			}
		}
	}
}

func visibleNow(s *services.Session, questionID string) bool {
	for _, q := range s.VisibleQuestions() {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

func firstSectionWith(a models.Assessment, violations map[string][]string) int {
	for i, sec := range a.Sections {
		for _, q := range sec.Questions {
			if violations[q.ID] != nil {
				return i
			}
		}
	}
	return -1
}

func ask(ctx context.Context, s *services.Session, sc *bufio.Scanner, out io.Writer, q models.Question, problems []string) error {
	for {
		for _, p := range problems {
			fmt.Fprintln(out, "  !", p)
		}
		fmt.Fprint(out, prompt(q))
		if !sc.Scan() {
			if err := s.SaveDraft(ctx); err != nil {
				return fmt.Errorf("input ended and draft could not be saved: %w", err)
			}
			return errInputClosed
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			return nil
		}
		v, err := parseAnswer(q, line)
		if err != nil {
			problems = []string{err.Error()}
			continue
		}
		if err := s.UpdateResponse(q.ID, v); err != nil {
			return err
		}
		if msgs := services.Validate(q, &models.QuestionResponse{QuestionID: q.ID, Value: v}); len(msgs) > 0 {
			problems = msgs
			continue
		}
		return nil
	}
}

func prompt(q models.Question) string {
	var b strings.Builder
	b.WriteString(q.Text)
	if q.Validation.Required {
		b.WriteString(" *")
	}
	b.WriteString("\n")
	if q.Description != "" {
		b.WriteString("  " + q.Description + "\n")
	}
	for i, o := range q.Options {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, o)
	}
	switch q.Type {
	case models.MultiChoice:
		b.WriteString("  (numbers or options, comma separated)\n")
	case models.FileUpload:
		b.WriteString("  (file name)\n")
	}
	b.WriteString("> ")
	return b.String()
}

// parseAnswer turns a terminal line into the value kind the question takes.
// Choice answers may be given by option number.
func parseAnswer(q models.Question, line string) (models.Value, error) {
	switch models.KindFor(q.Type) {
	case models.KindNumber:
		n, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return models.Value{}, fmt.Errorf("%q is not a number", line)
		}
		return models.NumberValue(n), nil
	case models.KindChoices:
		var picked []string
		seen := map[string]bool{}
		for _, part := range strings.Split(line, ",") {
			opt, err := pickOption(q, strings.TrimSpace(part))
			if err != nil {
				return models.Value{}, err
			}
			if !seen[opt] {
				seen[opt] = true
				picked = append(picked, opt)
			}
		}
		sort.SliceStable(picked, func(i, j int) bool { return optionIndex(q, picked[i]) < optionIndex(q, picked[j]) })
		return models.ChoicesValue(picked...), nil
	case models.KindFile:
		return models.FileValue(models.FileRef{Name: line}), nil
	default:
		if q.Type == models.SingleChoice {
			opt, err := pickOption(q, line)
			if err != nil {
				return models.Value{}, err
			}
			return models.TextValue(opt), nil
		}
		return models.TextValue(line), nil
	}
}

func pickOption(q models.Question, in string) (string, error) {
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1], nil
	}
	for _, o := range q.Options {
		if strings.EqualFold(o, in) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%q is not one of the options", in)
}

func optionIndex(q models.Question, opt string) int {
	for i, o := range q.Options {
		if o == opt {
			return i
		}
	}
	return len(q.Options)
}
