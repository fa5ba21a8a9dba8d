package params

import (
	"regexp"
	"strconv"
	"strings"
)

// cursorKey matches pagination cursor keys such as "cursor", "start_cursor"
// or "nextCursor".
var cursorKey = regexp.MustCompile(`(?i)(start_?|next_?|page_?)?cursor$`)

// IsCursorKey reports whether key names a pagination cursor.
func IsCursorKey(key string) bool {
	return cursorKey.MatchString(key)
}

// Sanitize removes values the upstream API would reject: nulls, blank
// strings, zero cursors and containers left empty by the cleanup.
// Inside arrays only null elements are removed. Scalars are returned as is.
func Sanitize(v Value) Value {
	switch v.kind {
	case KindObject:
		return sanitizeObject(v)
	case KindArray:
		return sanitizeArray(v)
	default:
		return v
	}
}

func sanitizeObject(v Value) Value {
	out := make([]Field, 0, len(v.fields))
	for _, f := range v.fields {
		if shouldDrop(f.Key, f.Value) {
			continue
		}
		val := f.Value
		switch val.kind {
		case KindArray:
			val = sanitizeArray(val)
		case KindObject:
			val = sanitizeObject(val)
		}
		if (val.kind == KindArray || val.kind == KindObject) && val.Len() == 0 {
			continue
		}
		out = append(out, Field{Key: f.Key, Value: val})
	}
	return Object(out...)
}

func sanitizeArray(v Value) Value {
	out := make([]Value, 0, len(v.items))
	for _, item := range v.items {
		switch item.kind {
		case KindAbsent, KindNull:
			continue
		case KindArray:
			item = sanitizeArray(item)
		case KindObject:
			item = sanitizeObject(item)
		}
		out = append(out, item)
	}
	return Array(out...)
}

func shouldDrop(key string, v Value) bool {
	switch v.kind {
	case KindAbsent, KindNull:
		return true
	case KindString:
		if strings.TrimSpace(v.str) == "" {
			return true
		}
	}
	return IsCursorKey(key) && isZero(v)
}

// isZero is true for the number 0 and the exact string "0".
func isZero(v Value) bool {
	switch v.kind {
	case KindNumber:
		f, err := strconv.ParseFloat(v.num, 64)
		return err == nil && f == 0
	case KindString:
		return v.str == "0"
	}
	return false
}
