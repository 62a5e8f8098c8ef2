package mapper

import (
	"fmt"
	"strings"
	"time"
)

// A transform converts a single field value between its native and shared
// representations. Transforms are pure: no I/O, no state, and for values
// representable on both sides fromShared(toShared(x)) == x.
type transform struct {
	toShared   func(b Binding, native any) (any, error)
	fromShared func(b Binding, shared any) (any, error)
}

var transforms = map[string]transform{
	"text": {
		toShared: func(_ Binding, native any) (any, error) {
			return asString(native)
		},
		fromShared: func(_ Binding, shared any) (any, error) {
			return shared, nil
		},
	},

	// select maps value words through the binding's Values table
	// (shared -> native), with Aliases accepting extra native spellings on
	// the way in.
	"select": {
		toShared: func(b Binding, native any) (any, error) {
			s, err := asString(native)
			if err != nil {
				return nil, err
			}
			if s == "" {
				return "", nil
			}
			for shared, nat := range b.Values {
				if nat == s {
					return shared, nil
				}
			}
			if shared, ok := b.Aliases[s]; ok {
				return shared, nil
			}
			return nil, fmt.Errorf("no mapping for native value %q", s)
		},
		fromShared: func(b Binding, shared any) (any, error) {
			s, err := asString(shared)
			if err != nil {
				return nil, err
			}
			if s == "" {
				return nil, nil
			}
			nat, ok := b.Values[s]
			if !ok {
				return nil, fmt.Errorf("no native value for %q", s)
			}
			return nat, nil
		},
	},

	"date": {
		toShared: func(_ Binding, native any) (any, error) { return asTime(native) },
		fromShared: func(_ Binding, shared any) (any, error) {
			t := derefTime(shared)
			if t == nil {
				return nil, nil
			}
			return t.UTC(), nil
		},
	},

	// dateonly clamps to midnight UTC on write; the exact timestamp, when
	// it matters, travels through the overflow field instead.
	"dateonly": {
		toShared: func(_ Binding, native any) (any, error) { return asTime(native) },
		fromShared: func(_ Binding, shared any) (any, error) {
			t := derefTime(shared)
			if t == nil {
				return nil, nil
			}
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return day, nil
		},
	},

	"tags": {
		toShared: func(_ Binding, native any) (any, error) {
			switch v := native.(type) {
			case nil:
				return []string(nil), nil
			case []string:
				return v, nil
			case []any:
				out := make([]string, 0, len(v))
				for _, e := range v {
					s, err := asString(e)
					if err != nil {
						return nil, err
					}
					out = append(out, s)
				}
				return out, nil
			}
			return nil, fmt.Errorf("expected tag list, got %T", native)
		},
		fromShared: func(_ Binding, shared any) (any, error) {
			return shared, nil
		},
	},
}

// Overflow values are flat strings keyed by shared field name; the codec
// here must invert exactly for round trips through systems that only carry
// the overflow blob.
func encodeOverflow(field string, shared any) (string, error) {
	switch field {
	case "tags":
		tags, _ := shared.([]string)
		return strings.Join(tags, ","), nil
	case "due":
		t := derefTime(shared)
		if t == nil {
			return "", nil
		}
		return t.UTC().Format(time.RFC3339), nil
	default:
		return asString(shared)
	}
}

func decodeOverflow(field, enc string) (any, error) {
	switch field {
	case "tags":
		if enc == "" {
			return []string(nil), nil
		}
		return strings.Split(enc, ","), nil
	case "due":
		t, err := time.Parse(time.RFC3339, enc)
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		return enc, nil
	}
}

func asString(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case *time.Time:
		return t, nil
	}
	return nil, fmt.Errorf("expected time, got %T", v)
}

func derefTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	}
	return nil
}
