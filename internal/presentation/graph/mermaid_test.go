package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func sample() []domain.NodeState {
	return []domain.NodeState{
		{ID: 1, Name: "patrol", Kind: domain.KindRoot, Depth: 0, LastStatus: domain.Running, Running: true, LastSeq: 7},
		{ID: 2, Name: "Selector", Kind: domain.KindComposite, Depth: 1, LastStatus: domain.Running, Running: true, LastSeq: 7},
		{ID: 3, Name: "Invert", Kind: domain.KindDecorator, Depth: 2, LastStatus: domain.Failure, LastSeq: 7},
		{ID: 4, Name: "enemy", Kind: domain.KindCondition, Depth: 3, LastStatus: domain.Success, LastSeq: 7},
		{ID: 5, Name: "walk", Kind: domain.KindAction, Depth: 2, LastStatus: domain.Running, Running: true, LastSeq: 7},
		{ID: 6, Name: "say \"hi\"", Kind: domain.KindAction, Depth: 1, LastStatus: domain.Success, LastSeq: 3},
	}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		contains []string
		excludes []string
		overlay  *graph.Overlay
	}{
		{
			name: "Shapes",
			contains: []string{
				"n1((\"patrol\"))",
				"n2[[\"Selector\"]]",
				"n3[/\"Invert\"\\]",
				"n4{\"enemy\"}",
				"n5[\"walk\"]",
			},
		},
		{
			name: "Edges From Depth",
			contains: []string{
				"n1 --> n2",
				"n2 --> n3",
				"n3 --> n4",
				"n2 --> n5",
				"n1 --> n6",
			},
			excludes: []string{"n4 --> n5", "n5 --> n6"},
		},
		{
			name:     "Label Escaping",
			contains: []string{"n6[\"say 'hi'\"]"},
		},
		{
			name:     "No Overlay",
			excludes: []string{"classDef"},
		},
		{
			name:    "Status Overlay",
			overlay: &graph.Overlay{Status: true, Seq: 7},
			contains: []string{
				"class n2 running;",
				"class n3 failure;",
				"class n4 success;",
				"class n5 current;",
			},
			excludes: []string{"class n6 current;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(sample(), tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestRender(t *testing.T) {
	got := graph.Render(sample(), 7)
	assert.Equal(t, []string{
		"patrol(R) *",
		"  Selector(R) *",
		"    Invert(F) *",
		"      enemy(S) *",
		"    walk(R) *",
		"  say \"hi\"(S)",
	}, got)

	untouched := graph.Render([]domain.NodeState{{Name: "idle"}}, 0)
	assert.Equal(t, []string{"idle(U)"}, untouched)
}
