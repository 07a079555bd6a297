package signaling

import "encoding/json"

// Ack delivers the (error, result) reply for join and create. A nil Ack is
// valid and drops the reply.
type Ack func(err error, result any)

func (a Ack) Call(err error, result any) {
	if a == nil {
		return
	}
	a(err, result)
}

// stringArg decodes raw as a JSON string. ok is false for anything else.
func stringArg(raw json.RawMessage) (s string, ok bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	s, ok = v.(string)
	return s, ok
}

// optionalStringArg is stringArg that also accepts an absent or null value as "".
func optionalStringArg(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", true
	}
	return stringArg(raw)
}
