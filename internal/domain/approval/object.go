package approval

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

const (
	// maxDepth bounds recursion into untrusted nested values.
	maxDepth        = 20
	truncatedMarker = "_(truncated: nesting too deep)_"
	noneValue       = "None"
)

func indent(level int) string {
	return strings.Repeat("  ", level)
}

// object renders each key of obj in insertion order. Nil values are skipped,
// nested objects and arrays get a bold label line followed by their body one
// level deeper.
func (f *formatter) object(obj *jsonv.Object, level int) string {
	if obj == nil {
		return ""
	}
	if level > maxDepth {
		return indent(level) + truncatedMarker
	}

	pad := indent(level)
	lines := make([]string, 0, obj.Len())
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)
		if v == nil {
			continue
		}
		label := "**" + f.label(key) + ":**"

		var body string
		switch t := v.(type) {
		case *jsonv.Object:
			body = f.object(t, level+1)
		case []any:
			if len(t) > 0 {
				body = f.list(t, level+1)
			}
		default:
			lines = append(lines, pad+label+" "+scalar(v))
			continue
		}

		if body == "" {
			lines = append(lines, pad+label+" "+noneValue)
			continue
		}
		lines = append(lines, pad+label, body)
	}
	return strings.Join(lines, "\n")
}

// list renders items as a numbered list when they hold objects and as a
// bulleted list otherwise.
func (f *formatter) list(items []any, level int) string {
	return f.listItems(items, level, holdsObjects(items))
}

func (f *formatter) listItems(items []any, level int, ordered bool) string {
	if level > maxDepth {
		return indent(level) + truncatedMarker
	}

	pad := indent(level)
	lines := make([]string, 0, len(items))
	n := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		n++
		marker := "-"
		if ordered {
			marker = strconv.Itoa(n) + "."
		}

		switch t := item.(type) {
		case *jsonv.Object:
			body := f.object(t, level+1)
			if body == "" {
				lines = append(lines, pad+marker+" "+noneValue)
				continue
			}
			lines = append(lines, pad+marker, body)
		case []any:
			lines = append(lines, pad+marker+" "+inline(t))
		default:
			lines = append(lines, pad+marker+" "+scalar(item))
		}
	}
	return strings.Join(lines, "\n")
}

// holdsObjects reports whether the first non-nil item is an object.
func holdsObjects(items []any) bool {
	for _, item := range items {
		if item == nil {
			continue
		}
		_, ok := item.(*jsonv.Object)
		return ok
	}
	return false
}

// inline renders an array nested directly in a list item on one line.
func inline(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case nil:
			continue
		case *jsonv.Object:
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			parts = append(parts, string(b))
		case []any:
			parts = append(parts, "["+inline(t)+"]")
		default:
			parts = append(parts, scalar(item))
		}
	}
	if len(parts) == 0 {
		return noneValue
	}
	return strings.Join(parts, ", ")
}

// scalar renders a leaf value. Booleans become Yes/No and numbers keep their
// natural form.
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case json.Number:
		return naturalNumber(t)
	case float64:
		return formatFloat(t)
	default:
		return fmt.Sprint(v)
	}
}

// naturalNumber keeps integer literals as written and prints other numbers in
// the shortest form that round-trips.
func naturalNumber(n json.Number) string {
	s := string(n)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return formatFloat(f)
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
