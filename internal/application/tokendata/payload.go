package tokendata

import (
	"bytes"
	"encoding/json"
)

// Payload is one upstream response body, or the error message that replaced
// it when that branch of the fetch failed. It marshals to the raw body or to
// {"error": "..."}.
type Payload struct {
	Data json.RawMessage
	Err  string
}

func failed(err error) Payload {
	return Payload{Err: err.Error()}
}

// Failed reports whether the branch produced an error instead of data
func (p Payload) Failed() bool {
	return p.Err != ""
}

// MarshalJSON implements json.Marshaler
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{p.Err})
	}
	if len(bytes.TrimSpace(p.Data)) == 0 {
		return []byte("null"), nil
	}
	return p.Data, nil
}

// UnmarshalJSON implements json.Unmarshaler. An object whose only key is a
// string "error" is read back as a failed branch.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = Payload{}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil && len(probe) == 1 {
		if raw, ok := probe["error"]; ok {
			var msg string
			if err := json.Unmarshal(raw, &msg); err == nil {
				p.Err = msg
				return nil
			}
		}
	}
	p.Data = append(json.RawMessage(nil), data...)
	return nil
}

// Decode returns the payload as generic JSON values for the engine. Failed
// branches decode to the {"error": msg} placeholder, which yields no candles.
func (p Payload) Decode() any {
	if p.Failed() {
		return map[string]any{"error": p.Err}
	}
	return decodeRaw(p.Data)
}

func decodeRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
