package util

import (
	"bytes"
	"encoding/json"
)

// Optional tells "not given" apart from a zero value in partial updates.
// A JSON field that is absent or null decodes as unset.
type Optional[T any] struct {
	Val   T
	IsSet bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

// UnwrapOr returns the value, or fallback when unset.
func (o Optional[T]) UnwrapOr(fallback T) T {
	if !o.IsSet {
		return fallback
	}
	return o.Val
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
