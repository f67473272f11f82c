package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a list of selections. Older records stored some selections
// as a single string; decoding accepts either form and always yields a list.
type StringList []string

// UnmarshalJSON accepts null, a string, or an array of strings. A blank
// string decodes to an empty list.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*l = StringList{}
			return nil
		}
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("decoding string list: %w", err)
	}
	*l = StringList(many)
	return nil
}

// MarshalJSON always writes an array, never null.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// normalized returns a trimmed copy with blank entries dropped.
func (l StringList) normalized() StringList {
	out := make(StringList, 0, len(l))
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
