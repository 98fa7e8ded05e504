package dsl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/canopy/pkg/blackboard"
	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/aretw0/canopy/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guardYAML = `
name: guard
root:
  type: selector
  children:
    - type: sequence
      name: Fight
      children:
        - type: condition
          expr: enemy_visible && hp > 3
        - type: action
          action: attack
    - type: if
      when:
        condition: tired
      child:
        type: action
        action: rest
    - type: repeat
      params: {times: 2}
      child:
        type: action
        action: patrol
`

type board = *blackboard.Board

func newRegistry() *registry.Registry[board] {
	reg := registry.New[board]()
	for _, name := range []string{"attack", "rest", "patrol"} {
		reg.RegisterFunc(name, func(ctx *bt.Context[board]) domain.Status {
			ctx.Data.Set("last", name)
			ctx.Data.Incr(name, 1)
			return domain.Success
		})
	}
	reg.RegisterCheck("tired", func(ctx *bt.Context[board]) bool {
		v, _ := ctx.Data.Get("tired")
		return v == true
	})
	return reg
}

func tick(t *testing.T, tree *bt.Tree[board], data board, seq uint64) domain.Status {
	t.Helper()
	return tree.Tick(&bt.Context[board]{Seq: seq, Data: data})
}

func TestCompile_GuardTree(t *testing.T) {
	def, err := dsl.Parse([]byte(guardYAML), "yaml")
	require.NoError(t, err)
	tree, err := dsl.Compile(def, newRegistry())
	require.NoError(t, err)
	assert.Equal(t, "guard", tree.Name())

	data := blackboard.New(map[string]any{"enemy_visible": true, "hp": 5})
	assert.Equal(t, domain.Success, tick(t, tree, data, 1))
	last, _ := data.Get("last")
	assert.Equal(t, "attack", last)

	data.Set("hp", 2)
	data.Set("tired", true)
	tick(t, tree, data, 2)
	last, _ = data.Get("last")
	assert.Equal(t, "rest", last)

	data.Set("tired", false)
	assert.Equal(t, domain.Running, tick(t, tree, data, 3))
	assert.Equal(t, domain.Success, tick(t, tree, data, 4))
	patrols, _ := data.Int("patrol")
	assert.Equal(t, 2, patrols)
}

func TestCompile_NodeNames(t *testing.T) {
	def, err := dsl.Parse([]byte(guardYAML), "yaml")
	require.NoError(t, err)
	tree, err := dsl.Compile(def, newRegistry())
	require.NoError(t, err)

	var names []string
	tree.Walk(func(n *bt.Node[board], _ int) {
		names = append(names, n.Name())
	})
	assert.Equal(t, []string{
		"guard", "Selector", "Fight", "Expr", "attack",
		"If", "tired", "rest", "Repeat<2>", "patrol",
	}, names)
}

func TestParse_JSON(t *testing.T) {
	src := `{"name": "j", "root": {"type": "retry", "params": {"limit": 2, "interval": "10ms"},
		"child": {"type": "fail"}}}`
	def, err := dsl.Parse([]byte(src), "json")
	require.NoError(t, err)
	require.NotNil(t, def.Root.Child)
	assert.Equal(t, "fail", def.Root.Child.Type)

	tree, err := dsl.Compile(def, registry.New[board]())
	require.NoError(t, err)
	child, _ := tree.Node(2)
	assert.Equal(t, "Retry<2,10ms>", child.Name())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.yml")
	require.NoError(t, os.WriteFile(path, []byte("root:\n  type: succeed\n"), 0o644))

	def, err := dsl.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sentry", def.Name, "unnamed definitions take the file name")

	_, err = dsl.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = dsl.LoadFile(bad)
	assert.ErrorContains(t, err, "bad.json")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown type", "root: {type: dance}", domain.ErrUnknownNode},
		{"unknown action", "root: {type: action, action: fly}", domain.ErrUnknownNode},
		{"unknown condition", "root: {type: condition, condition: sunny}", domain.ErrUnknownNode},
		{"action without name", "root: {type: action}", domain.ErrInvalidTree},
		{"empty composite", "root: {type: sequence}", domain.ErrInvalidTree},
		{"decorator without child", "root: {type: invert}", domain.ErrInvalidTree},
		{"if without guard", "root: {type: if, child: {type: succeed}}", domain.ErrInvalidTree},
		{"condition without source", "root: {type: condition}", domain.ErrInvalidTree},
		{"both expr and condition", "root: {type: condition, expr: 'true', condition: tired}", domain.ErrInvalidTree},
		{"retry without limit", "root: {type: retry, child: {type: succeed}}", domain.ErrInvalidTree},
		{"retry_forever with limit", "root: {type: retry_forever, params: {limit: 3}, child: {type: succeed}}", domain.ErrInvalidTree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := dsl.Parse([]byte(tt.src), "yaml")
			require.NoError(t, err)
			_, err = dsl.Compile(def, newRegistry())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompile_IfNotKeepsGuardName(t *testing.T) {
	src := `
root:
  type: sequence
  children:
    - type: if_not
      when: {condition: tired, name: Rested}
      child: {type: action, action: patrol}
    - type: if_not
      when: {expr: "hp < 3"}
      child: {type: action, action: patrol}
`
	def, err := dsl.Parse([]byte(src), "yaml")
	require.NoError(t, err)
	tree, err := dsl.Compile(def, newRegistry())
	require.NoError(t, err)

	var names []string
	tree.Walk(func(n *bt.Node[board], _ int) { names = append(names, n.Name()) })
	assert.Equal(t, []string{"Root", "Sequence", "IfNot", "Rested", "patrol", "IfNot", "Not Expr", "patrol"}, names)

	assert.Equal(t, domain.Success, tick(t, tree, blackboard.New(map[string]any{"hp": 5}), 1))
}

func TestCompile_RetryForever(t *testing.T) {
	def, err := dsl.Parse([]byte("root: {type: retry_forever, params: {interval: 1s}, child: {type: succeed}}"), "yaml")
	require.NoError(t, err)
	tree, err := dsl.Compile(def, newRegistry())
	require.NoError(t, err)
	n, _ := tree.Node(2)
	assert.Equal(t, "RetryForever<1s>", n.Name())
}

func TestCompile_ErrorsCarryPath(t *testing.T) {
	src := `
root:
  type: sequence
  children:
    - type: succeed
    - type: timeout
      params: {duration: soon}
      child: {type: succeed}
`
	def, err := dsl.Parse([]byte(src), "yaml")
	require.NoError(t, err)
	_, err = dsl.Compile(def, newRegistry())
	assert.ErrorContains(t, err, "root.children[1]")
}

func TestCompile_InvalidExpression(t *testing.T) {
	def, err := dsl.Parse([]byte("root: {type: condition, expr: 'hp >'}"), "yaml")
	require.NoError(t, err)
	_, err = dsl.Compile(def, newRegistry())
	assert.ErrorContains(t, err, "invalid expression")
}

func TestParse_RequiresRoot(t *testing.T) {
	_, err := dsl.Parse([]byte("name: empty"), "yaml")
	assert.Error(t, err)
}
