package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// Overlay selects which per-entity state is drawn on top of the tree.
type Overlay struct {
	// Status colors nodes by their last status.
	Status bool
	// Seq highlights nodes ticked in this tick. Zero disables it.
	Seq uint64
}

// GenerateMermaid produces a Mermaid flowchart from node states in id order,
// as returned by Tree.Inspect. Edges are recovered from the depths.
// It applies shape per kind:
// - Root: ((Circle))
// - Composite: [[Subroutine]]
// - Decorator: [/Trapezoid\]
// - Condition: {Rhombus}
// - Action: [Rectangle]
func GenerateMermaid(states []domain.NodeState, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var stack []domain.NodeID
	for _, st := range states {
		opener, closer := "[", "]"
		switch st.Kind {
		case domain.KindRoot:
			opener, closer = "((", "))"
		case domain.KindComposite:
			opener, closer = "[[", "]]"
		case domain.KindDecorator, domain.KindSubtree:
			opener, closer = "[/", "\\]"
		case domain.KindCondition:
			opener, closer = "{", "}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(st.ID), opener, escapeLabel(st.Name), closer)

		if st.Depth < len(stack) {
			stack = stack[:st.Depth]
		}
		if len(stack) > 0 {
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(stack[len(stack)-1]), mermaidID(st.ID))
		}
		stack = append(stack, st.ID)
	}

	if overlay == nil {
		return sb.String()
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	// Black text keeps labels readable on both themes.
	sb.WriteString("    classDef running fill:#fff3cd,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef success fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef failure fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current stroke:#01579b,stroke-width:4px;\n")

	for _, st := range states {
		if overlay.Status {
			if class := statusClass(st); class != "" {
				fmt.Fprintf(&sb, "    class %s %s;\n", mermaidID(st.ID), class)
			}
		}
		if overlay.Seq != 0 && st.LastSeq == overlay.Seq {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(st.ID))
		}
	}
	return sb.String()
}

func statusClass(st domain.NodeState) string {
	if st.Running {
		return "running"
	}
	switch st.LastStatus {
	case domain.Success:
		return "success"
	case domain.Failure:
		return "failure"
	}
	return ""
}

func mermaidID(id domain.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

func escapeLabel(name string) string {
	r := strings.NewReplacer("\"", "'", "<", "&lt;", ">", "&gt;")
	return r.Replace(name)
}
