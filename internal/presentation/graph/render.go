package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/canopy/pkg/domain"
)

// Render returns one line per node, indented by depth, in the form
// Name(S). Nodes whose last tick is seq are suffixed with " *".
func Render(states []domain.NodeState, seq uint64) []string {
	lines := make([]string, 0, len(states))
	for _, st := range states {
		status := st.LastStatus
		if st.Running {
			status = domain.Running
		}
		line := fmt.Sprintf("%s%s(%s)", strings.Repeat("  ", st.Depth), st.Name, status.Short())
		if seq != 0 && st.LastSeq == seq {
			line += " *"
		}
		lines = append(lines, line)
	}
	return lines
}
