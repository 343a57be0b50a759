package services

import (
	"testing"

	"github.com/soaringjerry/hireflow/internal/models"
)

func gated(op models.Operator, v models.Value) models.Question {
	return models.Question{ID: "q2", Type: models.ShortText, Conditional: &models.ConditionalRule{QuestionID: "q1", Operator: op, Value: v}}
}

func TestIsVisibleEqualsScenario(t *testing.T) {
	q := gated(models.OpEquals, models.TextValue("Yes"))
	if IsVisible(q, []models.QuestionResponse{answer("q1", models.TextValue("No"))}) {
		t.Fatalf("visible with No")
	}
	if !IsVisible(q, []models.QuestionResponse{answer("q1", models.TextValue("Yes"))}) {
		t.Fatalf("hidden with Yes")
	}
	if IsVisible(q, nil) {
		t.Fatalf("visible without prerequisite answer")
	}
}

func TestIsVisibleWithoutConditional(t *testing.T) {
	if !IsVisible(models.Question{ID: "q"}, nil) {
		t.Fatalf("unconditional question hidden")
	}
}

func TestIsVisibleOperators(t *testing.T) {
	cases := []struct {
		name   string
		op     models.Operator
		want   models.Value
		answer models.Value
		expect bool
	}{
		{"equals number coerces", models.OpEquals, models.TextValue("5"), models.NumberValue(5), true},
		{"equals number differs", models.OpEquals, models.NumberValue(4), models.NumberValue(5), false},
		{"not-equals text", models.OpNotEquals, models.TextValue("Yes"), models.TextValue("No"), true},
		{"not-equals same", models.OpNotEquals, models.TextValue("Yes"), models.TextValue("Yes"), false},
		{"not-equals on choices", models.OpNotEquals, models.TextValue("Go"), models.ChoicesValue("Go"), true},
		{"contains case-insensitive", models.OpContains, models.TextValue("GO"), models.TextValue("I write golang"), true},
		{"contains miss", models.OpContains, models.TextValue("rust"), models.TextValue("golang"), false},
		{"contains on number", models.OpContains, models.TextValue("5"), models.NumberValue(15), false},
		{"contains on choices", models.OpContains, models.TextValue("a"), models.ChoicesValue("a"), false},
		{"greater-than", models.OpGreaterThan, models.TextValue("3"), models.NumberValue(5), true},
		{"greater-than boundary", models.OpGreaterThan, models.NumberValue(5), models.NumberValue(5), false},
		{"greater-than on text", models.OpGreaterThan, models.NumberValue(3), models.TextValue("10"), false},
		{"greater-than bad rule value", models.OpGreaterThan, models.TextValue("many"), models.NumberValue(5), false},
		{"less-than", models.OpLessThan, models.NumberValue(3), models.NumberValue(1), true},
		{"less-than miss", models.OpLessThan, models.NumberValue(3), models.NumberValue(7), false},
		{"unknown operator", "between", models.TextValue("x"), models.TextValue("y"), true},
		{"negative below bound", models.OpLessThan, models.NumberValue(1), models.NumberValue(-2), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := IsVisible(gated(c.op, c.want), []models.QuestionResponse{answer("q1", c.answer)})
			if got != c.expect {
				t.Fatalf("IsVisible = %v, want %v", got, c.expect)
			}
		})
	}
}

func TestIsVisibleHiddenOnEmptyPrerequisite(t *testing.T) {
	q := gated("between", models.TextValue("x"))
	if IsVisible(q, []models.QuestionResponse{answer("q1", models.TextValue("  "))}) {
		t.Fatalf("blank prerequisite made question visible")
	}
	if IsVisible(q, []models.QuestionResponse{answer("q1", models.ChoicesValue())}) {
		t.Fatalf("empty selection made question visible")
	}
	// 0 is falsy here even though it satisfies less-than 1
	lt := gated(models.OpLessThan, models.NumberValue(1))
	if IsVisible(lt, []models.QuestionResponse{answer("q1", models.NumberValue(0))}) {
		t.Fatalf("zero prerequisite made question visible")
	}
}

func TestIsVisibleIsDeterministic(t *testing.T) {
	q := gated(models.OpContains, models.TextValue("go"))
	responses := []models.QuestionResponse{answer("q1", models.TextValue("Go"))}
	first := IsVisible(q, responses)
	for i := 0; i < 5; i++ {
		if IsVisible(q, responses) != first {
			t.Fatalf("result changed on call %d", i)
		}
	}
}

func TestVisibleQuestionsPreservesOrder(t *testing.T) {
	a := gatedAssessment()
	got := VisibleQuestions(a, []models.QuestionResponse{answer("q1", models.TextValue("Yes"))})
	ids := questionIDs(got)
	if len(ids) != 3 || ids[0] != "q1" || ids[1] != "q2" || ids[2] != "q3" {
		t.Fatalf("visible = %v", ids)
	}

	got = VisibleQuestions(a, []models.QuestionResponse{answer("q1", models.TextValue("No"))})
	if ids := questionIDs(got); len(ids) != 2 || ids[1] != "q3" {
		t.Fatalf("visible = %v", ids)
	}
}

func TestVisibleQuestionsHidesBrokenReferences(t *testing.T) {
	a := gatedAssessment()
	// q1 now depends on the later q3, which is answered.
	a.Sections[0].Questions[0].Conditional = &models.ConditionalRule{QuestionID: "q3", Operator: models.OpEquals, Value: models.NumberValue(1)}
	responses := []models.QuestionResponse{answer("q3", models.NumberValue(1))}
	for _, q := range VisibleQuestions(a, responses) {
		if q.ID == "q1" {
			t.Fatalf("forward reference left q1 visible")
		}
	}

	a = gatedAssessment()
	a.Sections[1].Questions[0].Conditional = &models.ConditionalRule{QuestionID: "ghost", Operator: "between"}
	if got := VisibleSectionQuestions(a, 1, nil); len(got) != 0 {
		t.Fatalf("missing reference left question visible: %v", questionIDs(got))
	}
}

func questionIDs(qs []models.Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}
