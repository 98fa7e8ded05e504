package runner

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Codec converts entity data to and from the map carried by a snapshot.
type Codec[T any] interface {
	Encode(data T) (map[string]any, error)
	Decode(m map[string]any) (T, error)
}

type funcCodec[T any] struct {
	encode func(T) (map[string]any, error)
	decode func(map[string]any) (T, error)
}

func (c funcCodec[T]) Encode(data T) (map[string]any, error) { return c.encode(data) }
func (c funcCodec[T]) Decode(m map[string]any) (T, error) { return c.decode(m) }

// NewCodec builds a Codec from two functions.
func NewCodec[T any](encode func(T) (map[string]any, error), decode func(map[string]any) (T, error)) Codec[T] {
	return funcCodec[T]{encode: encode, decode: decode}
}

// StructCodec maps struct or map data field by field with mapstructure.
// Decoding is weakly typed, so numbers that went through JSON come back as
// the field's integer type.
type StructCodec[T any] struct{}

// Encode flattens data into a map.
func (StructCodec[T]) Encode(data T) (map[string]any, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(data, &out); err != nil {
		return nil, fmt.Errorf("encode entity data: %w", err)
	}
	return out, nil
}

// Decode rebuilds data from a map.
func (StructCodec[T]) Decode(m map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(m); err != nil {
		return out, fmt.Errorf("decode entity data: %w", err)
	}
	return out, nil
}
