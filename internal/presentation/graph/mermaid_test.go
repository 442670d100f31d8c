package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/formflow/internal/presentation/graph"
	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    authoring.Graph
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name: "Step Shapes",
			graph: authoring.Graph{Steps: []authoring.GraphStep{
				{ID: 1, Code: "intro", Title: "Intro", StepType: domain.StepQuestionnaire, IsStart: true},
				{ID: 2, Code: "docs", Title: "Docs", StepType: domain.StepUpload},
				{ID: 3, Code: "check", Title: "Check", StepType: domain.StepReview},
				{ID: 4, Code: "plain", Title: "Plain", StepType: domain.StepQuestionnaire},
				{ID: 5, Code: "done", Title: "Done", StepType: domain.StepReview, IsTerminal: true},
			}},
			contains: []string{
				`intro(("Intro"))`,
				`docs[/"Docs"/]`,
				`check{{"Check"}}`,
				`plain["Plain"]`,
				`done(["Done"])`,
			},
		},
		{
			name: "ID Sanitization",
			graph: authoring.Graph{Steps: []authoring.GraphStep{
				{ID: 1, Code: "step-1.a", Title: `Say "hi"`},
			}},
			contains: []string{`step_1_a["Say 'hi'"]`},
		},
		{
			name: "Route Labels",
			graph: authoring.Graph{
				Steps: []authoring.GraphStep{{ID: 1, Code: "a"}, {ID: 2, Code: "b"}, {ID: 3, Code: "c"}},
				Routes: []authoring.GraphRoute{
					{SourceStepID: 1, TargetStepID: 2, Priority: 10, ScenarioDescription: `is_dev = "yes"`, Conditions: 1},
					{SourceStepID: 1, TargetStepID: 3, Priority: 100, Description: "fallback"},
					{SourceStepID: 2, TargetStepID: 99, Priority: 1, Conditions: 1},
				},
			},
			contains: []string{
				`a -- "p10: is_dev = 'yes'" --> b`,
				`a -. "p100: fallback" .-> c`,
			},
			excludes: []string{"p1\""},
		},
		{
			name: "Overlay",
			graph: authoring.Graph{Steps: []authoring.GraphStep{
				{ID: 1, Code: "a"}, {ID: 2, Code: "b"},
			}},
			overlay: graph.OverlayFrom(domain.Navigation{
				Completed:       []string{"a", "a", "b"},
				CurrentStepCode: strPtr("b"),
			}),
			contains: []string{
				"classDef completed",
				"class a completed;",
				"class b current;",
			},
			excludes: []string{"class b completed;"},
		},
		{
			name:     "No Overlay",
			graph:    authoring.Graph{Steps: []authoring.GraphStep{{ID: 1, Code: "a"}}},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(&tt.graph, tt.overlay)
			if !strings.HasPrefix(got, "graph TD\n") {
				t.Errorf("GenerateMermaid() missing header:\n%v", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, bad)
				}
			}
			if strings.Count(got, "class a completed;") > 1 {
				t.Errorf("completed steps must be deduplicated:\n%v", got)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
