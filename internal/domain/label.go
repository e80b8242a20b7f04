package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Label is an option key that clients send either as a JSON string or as a
// bare number ("channel_count": 8 and "channel_count": "8" are equivalent).
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Label(n.String())
	return nil
}

func (l Label) String() string {
	return string(l)
}
