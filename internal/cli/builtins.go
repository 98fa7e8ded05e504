package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/pkg/blob"
	"github.com/aretw0/canopy/pkg/bt"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/registry"
)

type board = canopy.Board

// Builtins returns the actions and conditions available to definitions run
// from the command line. print writes to out.
//
// Actions: set{key,value}, incr{key,by}, print{message}, wait{ticks}, fail.
// Conditions: flag{key}, above{key,value}, below{key,value}.
func Builtins(out io.Writer) *canopy.Registry {
	reg := canopy.NewRegistry()

	reg.Register("set", func(name string, params map[string]any) (*bt.Node[board], error) {
		var p struct {
			Key   string `mapstructure:"key"`
			Value any    `mapstructure:"value"`
		}
		if err := decodeKey(params, &p, &p.Key); err != nil {
			return nil, err
		}
		return bt.Do(name, func(ctx *bt.Context[board]) domain.Status {
			ctx.Data.Set(p.Key, p.Value)
			return domain.Success
		}), nil
	})

	reg.Register("incr", func(name string, params map[string]any) (*bt.Node[board], error) {
		p := struct {
			Key string `mapstructure:"key"`
			By  int    `mapstructure:"by"`
		}{By: 1}
		if err := decodeKey(params, &p, &p.Key); err != nil {
			return nil, err
		}
		return bt.Do(name, func(ctx *bt.Context[board]) domain.Status {
			ctx.Data.Incr(p.Key, p.By)
			return domain.Success
		}), nil
	})

	reg.Register("print", func(name string, params map[string]any) (*bt.Node[board], error) {
		var p struct {
			Message string `mapstructure:"message"`
		}
		if err := registry.Decode(params, &p); err != nil {
			return nil, err
		}
		return bt.Do(name, func(ctx *bt.Context[board]) domain.Status {
			fmt.Fprintf(out, "[%d] %s\n", ctx.Seq, p.Message)
			return domain.Success
		}), nil
	})

	reg.Register("wait", func(name string, params map[string]any) (*bt.Node[board], error) {
		var p struct {
			Ticks int `mapstructure:"ticks"`
		}
		if err := registry.Decode(params, &p); err != nil {
			return nil, err
		}
		return bt.NewStatefulAction[waitBlob, board](name, &waitAction{ticks: p.Ticks}), nil
	})

	reg.RegisterFunc("fail", func(*bt.Context[board]) domain.Status { return domain.Failure })

	reg.RegisterCondition("flag", func(params map[string]any) (bt.Condition[board], error) {
		var p struct {
			Key string `mapstructure:"key"`
		}
		if err := decodeKey(params, &p, &p.Key); err != nil {
			return nil, err
		}
		return bt.ConditionFunc[board](func(ctx *bt.Context[board]) bool {
			v, _ := ctx.Data.Get(p.Key)
			b, ok := v.(bool)
			return ok && b
		}), nil
	})

	for _, cmp := range []struct {
		name string
		test func(have, want int) bool
	}{
		{"above", func(have, want int) bool { return have > want }},
		{"below", func(have, want int) bool { return have < want }},
	} {
		reg.RegisterCondition(cmp.name, func(params map[string]any) (bt.Condition[board], error) {
			var p struct {
				Key   string `mapstructure:"key"`
				Value int    `mapstructure:"value"`
			}
			if err := decodeKey(params, &p, &p.Key); err != nil {
				return nil, err
			}
			return bt.ConditionFunc[board](func(ctx *bt.Context[board]) bool {
				have, ok := ctx.Data.Int(p.Key)
				return ok && cmp.test(have, p.Value)
			}), nil
		})
	}

	return reg
}

func decodeKey(params map[string]any, out any, key *string) error {
	if err := registry.Decode(params, out); err != nil {
		return err
	}
	if *key == "" {
		return fmt.Errorf("invalid params: key is required")
	}
	return nil
}

type waitBlob struct {
	blob.NodeBlob
	elapsed int
}

// waitAction stays RUNNING for ticks ticks of its round, then succeeds.
type waitAction struct {
	ticks int
}

func (w *waitAction) OnEnter(ctx *bt.Context[board]) {
	bt.BlobOf[waitBlob](ctx).elapsed = 0
}

func (w *waitAction) Update(ctx *bt.Context[board]) domain.Status {
	b := bt.BlobOf[waitBlob](ctx)
	if b.elapsed >= w.ticks {
		return domain.Success
	}
	b.elapsed++
	return domain.Running
}
