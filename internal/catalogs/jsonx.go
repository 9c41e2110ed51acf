package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// stringList decodes a JSON string, array of scalars, or null. The Internet Archive returns
// single values as strings and repeated values as arrays for the same field.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}

	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = stringList{one}
		return nil
	}

	var many []any
	if err := json.Unmarshal(b, &many); err == nil {
		out := make(stringList, 0, len(many))
		for _, v := range many {
			if v == nil {
				continue
			}
			out = append(out, strings.TrimSpace(fmt.Sprint(v)))
		}
		*s = out
		return nil
	}

	var scalar any
	if err := json.Unmarshal(b, &scalar); err == nil {
		switch v := scalar.(type) {
		case float64, bool:
			*s = stringList{fmt.Sprint(v)}
			return nil
		}
	}
	// unknown shapes degrade to empty instead of failing the whole response
	*s = nil
	return nil
}

func (s stringList) first() string {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// flexInt decodes a number, a numeric string, a date-like string (year extracted) or null.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = flexInt(f)
		return nil
	}

	var list stringList
	_ = list.UnmarshalJSON(b)
	raw := list.first()
	if v, err := strconv.Atoi(raw); err == nil {
		*n = flexInt(v)
		return nil
	}
	*n = flexInt(extractYear(raw))
	return nil
}

// records decodes a JSON array of objects one element at a time. A member whose value does
// not fit its field is dropped from that element only, so one malformed record never fails
// the response it arrived in. null decodes to an empty list.
type records[T any] []T

func (r *records[T]) UnmarshalJSON(b []byte) error {
	var items []lenient[T]
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(records[T], 0, len(items))
	for _, item := range items {
		out = append(out, item.Value)
	}
	*r = out
	return nil
}

// lenient decodes a JSON object into T, skipping members that fail to decode. Anything
// that is not an object decodes to the zero value.
type lenient[T any] struct {
	Value T
}

func (l *lenient[T]) UnmarshalJSON(b []byte) error {
	var zero T
	l.Value = zero
	if err := json.Unmarshal(b, &l.Value); err == nil {
		return nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		l.Value = zero
		return nil
	}
	for key, raw := range members {
		var single T
		one, err := json.Marshal(map[string]json.RawMessage{key: raw})
		if err != nil || json.Unmarshal(one, &single) != nil {
			delete(members, key)
		}
	}

	kept, err := json.Marshal(members)
	if err != nil {
		l.Value = zero
		return nil
	}
	l.Value = zero
	if err := json.Unmarshal(kept, &l.Value); err != nil {
		l.Value = zero
	}
	return nil
}
