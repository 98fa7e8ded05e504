package canopy_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/pkg/adapters/memory"
	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sentryYAML = `
name: sentry
root:
  type: selector
  children:
    - type: if
      when: {expr: "hp < 3"}
      child: {type: action, action: flee}
    - type: action
      action: hurt
`

func sentryRegistry() *canopy.Registry {
	reg := canopy.NewRegistry()
	reg.RegisterFunc("hurt", func(ctx *bt.Context[canopy.Board]) domain.Status {
		ctx.Data.Incr("hp", -1)
		return domain.Success
	})
	reg.RegisterFunc("flee", func(ctx *bt.Context[canopy.Board]) domain.Status {
		ctx.Data.Set("fled", true)
		return domain.Success
	})
	return reg
}

func writeDefinition(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sentryYAML), 0o644))
	return path
}

func TestFacade_Integration(t *testing.T) {
	eng, err := canopy.New(writeDefinition(t), canopy.WithRegistry(sentryRegistry()))
	require.NoError(t, err)
	assert.Equal(t, "sentry", eng.Name)
	assert.Equal(t, 6, eng.Tree().NumNodes())

	id, err := eng.Spawn("", map[string]any{"hp": 4})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "empty ids are generated")

	var ticks []domain.Status
	eng.OnTick(func(_ string, _ uint64, s domain.Status) { ticks = append(ticks, s) })

	eng.Step()
	eng.Step()
	board, err := eng.Board(id)
	require.NoError(t, err)
	hp, _ := board.Int("hp")
	assert.Equal(t, 2, hp)
	assert.False(t, board.Has("fled"))

	eng.Step()
	assert.True(t, board.Has("fled"))
	assert.Equal(t, []domain.Status{domain.Success, domain.Success, domain.Success}, ticks)

	states, err := eng.Inspect(id)
	require.NoError(t, err)
	require.Len(t, states, 6)
	assert.Equal(t, "flee", states[4].Name)
	assert.Equal(t, uint64(3), states[4].LastSeq)
}

func TestFacade_Structure(t *testing.T) {
	eng, err := canopy.New(writeDefinition(t), canopy.WithRegistry(sentryRegistry()))
	require.NoError(t, err)

	var names []string
	for _, st := range eng.Structure() {
		names = append(names, st.Name)
		assert.Equal(t, domain.Undefined, st.LastStatus)
	}
	assert.Equal(t, []string{"sentry", "Selector", "If", "Expr", "flee", "hurt"}, names)
}

func TestFacade_UnknownAction(t *testing.T) {
	_, err := canopy.New(writeDefinition(t))
	assert.ErrorIs(t, err, domain.ErrUnknownNode)

	_, err = canopy.New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFacade_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	eng, err := canopy.New(writeDefinition(t),
		canopy.WithRegistry(sentryRegistry()),
		canopy.WithMetrics(m),
	)
	require.NoError(t, err)
	_, _ = eng.Spawn("a", map[string]any{"hp": 9})
	_, _ = eng.Spawn("b", map[string]any{"hp": 9})
	eng.Step()

	n, err := testutil.GatherAndCount(reg, "canopy_ticks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(reg, "canopy_node_enters_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestFacade_SnapshotHandOff(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	path := writeDefinition(t)

	first, err := canopy.New(path,
		canopy.WithRegistry(sentryRegistry()),
		canopy.WithRunnerOptions(runner.WithStore(store)),
	)
	require.NoError(t, err)
	_, _ = first.Spawn("orc", map[string]any{"hp": 4, "name": "grunt"})
	first.Step()
	require.NoError(t, first.Runner().Release(ctx, "orc"))

	second, err := canopy.New(path,
		canopy.WithRegistry(sentryRegistry()),
		canopy.WithRunnerOptions(runner.WithStore(store)),
	)
	require.NoError(t, err)
	require.NoError(t, second.Runner().Import(ctx, "orc"))

	board, err := second.Board("orc")
	require.NoError(t, err)
	hp, _ := board.Int("hp")
	assert.Equal(t, 3, hp)
	name, _ := board.Get("name")
	assert.Equal(t, "grunt", name)

	info, _ := second.Entity("orc")
	assert.Equal(t, uint64(1), info.Seq)
}

func TestTracer(t *testing.T) {
	eng, err := canopy.New(writeDefinition(t), canopy.WithRegistry(sentryRegistry()))
	require.NoError(t, err)
	_, _ = eng.Spawn("orc", map[string]any{"hp": 4})

	var buf bytes.Buffer
	canopy.NewTracer(&buf).Attach(eng)
	eng.Step()

	assert.Equal(t, `--- pass 1 ---
[orc] seq=1 SUCCESS
sentry(S) *
  Selector(S) *
    If(F) *
      Expr(F) *
      flee(U)
    hurt(S) *
`, buf.String())

	buf.Reset()
	headless := &canopy.Tracer{Output: &buf, Headless: true}
	require.NoError(t, headless.Print(eng, 7))
	assert.Equal(t, "7 orc SUCCESS\n", buf.String())

	assert.Error(t, (&canopy.Tracer{}).Print(eng, 1))
}
