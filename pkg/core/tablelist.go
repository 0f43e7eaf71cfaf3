package core

import (
	"encoding/json"
	"strings"
)

// TableList is the table list of a semantic view.
//
// Storage serializes the list as JSON text, so a record read back from storage
// carries a string where a freshly parsed one carries a list. ParseTableList
// accepts either form; every consumer reads Names and never sees the encoding.
type TableList struct {
	names []string
	// invalid is set when the source was a string that did not decode.
	invalid bool
}

// NewTableList builds a list from table names.
func NewTableList(names ...string) TableList {
	if len(names) == 0 {
		return TableList{}
	}
	out := make([]string, len(names))
	copy(out, names)
	return TableList{names: out}
}

// ParseTableList normalizes the raw tables field of a semantic view.
// Accepted forms are []string, []any of strings, and a JSON-encoded string
// array. Anything else yields an empty, invalid list; non-string list
// elements are dropped.
func ParseTableList(v any) TableList {
	switch t := v.(type) {
	case nil:
		return TableList{}
	case TableList:
		return t
	case []string:
		return NewTableList(t...)
	case []any:
		names := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return TableList{names: names}
	case string:
		if strings.TrimSpace(t) == "" {
			return TableList{}
		}
		var raw []any
		if err := json.Unmarshal([]byte(t), &raw); err != nil {
			return TableList{invalid: true}
		}
		return ParseTableList(raw)
	default:
		return TableList{invalid: true}
	}
}

// Names returns a copy of the table names in declaration order.
func (l TableList) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of tables.
func (l TableList) Len() int { return len(l.names) }

// Valid reports whether the source decoded cleanly.
func (l TableList) Valid() bool { return !l.invalid }

// JSON returns the storage encoding of the list.
func (l TableList) JSON() string {
	names := l.names
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(names)
	return string(b)
}

// MarshalJSON writes the storage form: a JSON string holding the encoded array.
func (l TableList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.JSON())
}

// UnmarshalJSON accepts both the storage string form and a plain array.
func (l *TableList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*l = ParseTableList(v)
	return nil
}
