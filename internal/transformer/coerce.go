package transformer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Built-in layouts, tried after any configured ones. time.Parse accepts a
// fractional second after the seconds field even when the layout omits it.
var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	dateLayouts = []string{
		"2006-01-02",
		"02.01.2006",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
)

var errUnsupported = errors.New("unsupported value type")

func toTime(v any, layouts []string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, nil
			}
		}
		return nil, errors.New("no layout matched")
	}
	return nil, fmt.Errorf("%w %T", errUnsupported, v)
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case nil, int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x == float64(int64(x)) {
			return int64(x), nil
		}
		return nil, errors.New("not an integer")
	case string:
		if strings.TrimSpace(x) == "" {
			return nil, nil
		}
		i, ok := toIntFast(strings.TrimSpace(x))
		if !ok {
			return nil, errors.New("not an integer")
		}
		return i, nil
	}
	return nil, fmt.Errorf("%w %T", errUnsupported, v)
}

// toIntFast parses integers quickly and only falls back to float parsing when
// the field contains a '.' (supporting inputs like "42.0").
func toIntFast(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f == float64(int64(f)) {
				return int64(f), true
			}
		}
	}
	return 0, false
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case nil, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.New("not a number")
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w %T", errUnsupported, v)
}

type boolVocab struct {
	custom        bool
	truthy, falsy map[string]struct{}
}

func newBoolVocab(truthy, falsy []string) boolVocab {
	if len(truthy) == 0 && len(falsy) == 0 {
		return boolVocab{}
	}
	bv := boolVocab{custom: true, truthy: map[string]struct{}{}, falsy: map[string]struct{}{}}
	for _, s := range truthy {
		bv.truthy[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range falsy {
		bv.falsy[strings.ToLower(s)] = struct{}{}
	}
	return bv
}

func toBool(v any, bv boolVocab) (any, error) {
	switch x := v.(type) {
	case nil, bool:
		return x, nil
	case int64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		if b, ok := toBoolFast(s, bv.custom, bv.truthy, bv.falsy); ok {
			return b, nil
		}
	default:
		return nil, fmt.Errorf("%w %T", errUnsupported, v)
	}
	return nil, errors.New("not a boolean")
}

// toBoolFast resolves booleans with optional custom vocabularies.
func toBoolFast(s string, custom bool, truthy, falsy map[string]struct{}) (bool, bool) {
	ls := strings.ToLower(s)
	if ls == "" {
		return false, false
	}
	if custom {
		if _, ok := truthy[ls]; ok {
			return true, true
		}
		if _, ok := falsy[ls]; ok {
			return false, true
		}
		return false, false
	}
	switch ls {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	}
	return false, false
}

func toText(v any) (any, error) {
	switch x := v.(type) {
	case nil, string:
		return x, nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	return fmt.Sprint(v), nil
}
