package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Extra holds JSON members a record carries that the Go model does not name.
// They are written back on encode so a round trip never drops data.
type Extra map[string]json.RawMessage

var (
	knownKeysCache sync.Map // reflect.Type -> map[string]int
	decimalType    = reflect.TypeOf(decimal.Decimal{})
)

// decodeRecord decodes data into dst (a pointer to a struct without custom
// JSON methods). Legacy member names listed in aliases are renamed to their
// canonical form first, and dropped when the canonical member is present;
// members dst does not declare are returned as Extra.
//
// A member whose value does not fit its field does not fail the record: it
// is coerced the way the desktop app reads it ("" and unparsable numbers
// become zero, numbers become strings) or left at the zero value.
func decodeRecord(data []byte, dst any, aliases map[string]string) (Extra, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, nil
	}

	for legacy, canonical := range aliases {
		raw, ok := fields[legacy]
		if !ok {
			continue
		}
		if _, taken := fields[canonical]; !taken {
			fields[canonical] = raw
		}
		delete(fields, legacy)
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(normalized, dst); err != nil {
		decodeLenient(fields, reflect.ValueOf(dst).Elem())
	}

	known := knownKeys(reflect.TypeOf(dst).Elem())
	var extra Extra
	for key, raw := range fields {
		if _, ok := known[key]; ok {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[key] = raw
	}
	return extra, nil
}

// encodeRecord encodes src and folds extra members back in. Declared fields
// win over extra members with the same name.
func encodeRecord(src any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(src)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for key, raw := range extra {
		if _, ok := fields[key]; !ok {
			fields[key] = raw
		}
	}
	return json.Marshal(fields)
}

// decodeLenient fills v field by field, coercing members that do not
// decode as their field type.
func decodeLenient(fields map[string]json.RawMessage, v reflect.Value) {
	v.SetZero()
	for key, index := range knownKeys(v.Type()) {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		field := v.Field(index)
		ptr := reflect.New(field.Type())
		if err := json.Unmarshal(raw, ptr.Interface()); err == nil {
			field.Set(ptr.Elem())
			continue
		}
		if coerced, ok := coerceScalar(raw, field.Type()); ok {
			field.Set(coerced)
		}
	}
}

// coerceScalar converts a mistyped JSON scalar to t. Values that cannot be
// read as a number become zero. Non-scalar targets report false.
func coerceScalar(raw json.RawMessage, t reflect.Type) (reflect.Value, bool) {
	if t.Kind() == reflect.Pointer {
		elem, ok := coerceScalar(raw, t.Elem())
		if !ok {
			return reflect.Value{}, false
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, true
	}

	text := scalarText(raw)
	out := reflect.New(t).Elem()
	switch {
	case t == decimalType:
		if d, err := decimal.NewFromString(text); err == nil {
			out.Set(reflect.ValueOf(d))
		}
	case t.Kind() == reflect.String:
		out.SetString(text)
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Int64:
		if d, err := decimal.NewFromString(text); err == nil {
			out.SetInt(d.IntPart())
		}
	case t.Kind() == reflect.Bool:
		switch strings.ToLower(text) {
		case "", "0", "false", "no":
		default:
			if d, err := decimal.NewFromString(text); err != nil || !d.IsZero() {
				out.SetBool(true)
			}
		}
	default:
		return reflect.Value{}, false
	}
	return out, true
}

// scalarText returns the text of a JSON string, number or boolean. Objects,
// arrays and null yield "".
func scalarText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '{', '[', 'n':
		return ""
	default:
		return string(trimmed)
	}
}

func knownKeys(t reflect.Type) map[string]int {
	if cached, ok := knownKeysCache.Load(t); ok {
		return cached.(map[string]int)
	}

	keys := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			if head, _, _ := strings.Cut(tag, ","); head != "" {
				name = head
			}
		}
		keys[name] = i
	}

	knownKeysCache.Store(t, keys)
	return keys
}
