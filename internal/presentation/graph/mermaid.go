package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/formflow/pkg/authoring"
	"github.com/aretw0/formflow/pkg/domain"
)

// Overlay contains instance state to paint on top of a form graph.
type Overlay struct {
	Completed []string
	Current   string
}

// OverlayFrom builds an overlay from the navigation state of an instance.
func OverlayFrom(nav domain.Navigation) *Overlay {
	o := &Overlay{Completed: nav.Completed}
	if nav.CurrentStepCode != nil {
		o.Current = *nav.CurrentStepCode
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a form. Shapes follow the step:
// - Start: ((Circle))
// - Terminal: ([Stadium])
// - Upload: [/Parallelogram/]
// - Review: {{Hexagon}}
// - Default: [Rectangle]
// Routes are labelled with their priority and scenario; routes without conditions are dotted.
func GenerateMermaid(g *authoring.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	codes := make(map[int64]string, len(g.Steps))
	for _, st := range g.Steps {
		codes[st.ID] = st.Code

		opener, closer := "[", "]"
		switch {
		case st.IsStart:
			opener, closer = "((", "))"
		case st.IsTerminal:
			opener, closer = "([", "])"
		case st.StepType == domain.StepUpload:
			opener, closer = "[/", "/]"
		case st.StepType == domain.StepReview:
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(st.Code), opener, escapeLabel(st.Title), closer)
	}

	for _, r := range g.Routes {
		from, to := codes[r.SourceStepID], codes[r.TargetStepID]
		if from == "" || to == "" {
			continue
		}
		label := fmt.Sprintf("p%d", r.Priority)
		if text := routeText(r); text != "" {
			label += ": " + escapeLabel(text)
		}

		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if r.Conditions == 0 {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(to))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, code := range overlay.Completed {
			id := sanitizeMermaidID(code)
			if id == "" || seen[id] || code == overlay.Current {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s completed;\n", id)
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func routeText(r authoring.GraphRoute) string {
	if r.ScenarioDescription != "" {
		return r.ScenarioDescription
	}
	return r.Description
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
