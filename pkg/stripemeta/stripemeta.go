// Package stripemeta reads identifiers and metadata out of processor payloads
// whose shape varies between API versions: a bare id string, an expanded
// object decoded into a map, or a typed stripe-go struct.
package stripemeta

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// ExtractID returns the id carried by v, or "" when none can be found.
func ExtractID(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case *string:
		if t == nil {
			return ""
		}
		return strings.TrimSpace(*t)
	case map[string]any:
		if id, ok := t["id"].(string); ok {
			return strings.TrimSpace(id)
		}
		return ""
	case map[string]string:
		return strings.TrimSpace(t["id"])
	}
	return idField(reflect.ValueOf(v))
}

func idField(rv reflect.Value) string {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ""
	}
	for _, name := range []string{"ID", "Id"} {
		f := rv.FieldByName(name)
		if !f.IsValid() {
			continue
		}
		if f.Kind() == reflect.String {
			return strings.TrimSpace(f.String())
		}
		if f.Kind() == reflect.Ptr && !f.IsNil() && f.Elem().Kind() == reflect.String {
			return strings.TrimSpace(f.Elem().String())
		}
	}
	return ""
}

// MergeMetadata returns a fresh map holding existing overlaid with extra.
// existing may be a map, a JSON object as string or bytes, or nil. Values in
// extra win. existing is never mutated.
func MergeMetadata(existing any, extra map[string]any) map[string]any {
	out := ToMap(existing)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// ToMap copies a metadata value into a new map. Anything that is not an
// object decodes to an empty map.
func ToMap(v any) map[string]any {
	out := map[string]any{}
	switch t := v.(type) {
	case nil:
	case map[string]any:
		for k, val := range t {
			out[k] = val
		}
	case map[string]string:
		for k, val := range t {
			out[k] = val
		}
	case string:
		decodeInto(out, []byte(t))
	case []byte:
		decodeInto(out, t)
	case json.RawMessage:
		decodeInto(out, t)
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			decodeInto(out, rv.Bytes())
		}
	}
	return out
}

func decodeInto(out map[string]any, raw []byte) {
	if len(raw) == 0 {
		return
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return
	}
	for k, val := range decoded {
		out[k] = val
	}
}

var cardFields = []string{"brand", "last4", "country", "funding", "exp_month", "exp_year"}

// CardMetaFromCharge pulls the card summary from
// payment_method_details.card. Null and empty values are omitted.
func CardMetaFromCharge(charge any) map[string]any {
	out := map[string]any{}
	card := Lookup(charge, "payment_method_details", "card")
	if card == nil {
		return out
	}
	for _, field := range cardFields {
		val := Lookup(card, field)
		if isEmpty(val) {
			continue
		}
		out[field] = val
	}
	return out
}

// ReceiptURLFromCharge returns the hosted receipt link of a charge.
func ReceiptURLFromCharge(charge any) string {
	return String(Lookup(charge, "receipt_url"))
}

// Lookup walks path through nested maps, slices (numeric segments) and
// structs (matched by json tag, then by field name). It returns nil as soon
// as a segment cannot be followed.
func Lookup(v any, path ...string) any {
	cur := v
	for _, seg := range path {
		cur = step(cur, seg)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func step(v any, seg string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return t[seg]
	case map[string]string:
		if s, ok := t[seg]; ok {
			return s
		}
		return nil
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(t) {
			return nil
		}
		return t[i]
	case string, []byte, json.RawMessage:
		m := ToMap(t)
		if len(m) == 0 {
			return nil
		}
		return m[seg]
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		val := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil
		}
		return deref(val)
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil
		}
		return deref(rv.Index(i))
	case reflect.Struct:
		if f, ok := structField(rv, seg); ok {
			return deref(f)
		}
	}
	return nil
}

func structField(rv reflect.Value, seg string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == seg {
			return rv.Field(i), true
		}
	}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.IsExported() && strings.EqualFold(sf.Name, strings.ReplaceAll(seg, "_", "")) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func deref(val reflect.Value) any {
	for val.Kind() == reflect.Ptr || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if !val.CanInterface() {
		return nil
	}
	// Typed enums and ints collapse to their plain kinds.
	switch val.Kind() {
	case reflect.String:
		return val.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int()
	}
	return val.Interface()
}

// String renders scalar values as a string. Objects yield their id.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return ExtractID(v)
}

// Int64 converts numbers and numeric strings. Anything else is 0.
func Int64(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float64:
		return int64(t)
	case json.Number:
		n, _ := t.Int64()
		return n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case *int64:
		if t == nil {
			return 0
		}
		return *t
	}
	return 0
}

// Bool reads a JSON boolean. Anything else is false.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case float64:
		return t == 0
	case int64:
		return t == 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String() == ""
	}
	return false
}
