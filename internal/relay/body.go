package relay

import (
	"bytes"
	"encoding/json"
)

// Defaults fill absent fields of an inbound body.
type Defaults struct {
	Model       string
	Temperature float64
}

// DefaultDefaults mirrors the DeepSeek deployment.
var DefaultDefaults = Defaults{
	Model:       "deepseek-chat",
	Temperature: 0.2,
}

// Shaped summarises the upstream body for logging and token estimation.
type Shaped struct {
	Model    string
	Stream   bool
	Messages json.RawMessage
}

var (
	emptyMessages = json.RawMessage("[]")
	falseValue    = json.RawMessage("false")
)

// BuildUpstreamBody derives the upstream request body from an inbound one.
//
// model, messages, temperature and stream are defaulted when absent or null;
// an empty model counts as absent. Present values are copied byte for byte,
// as is every other top-level field. Keys come out sorted, so the same inbound
// bytes always produce the same outbound bytes.
func BuildUpstreamBody(raw []byte, d Defaults) ([]byte, *Shaped, error) {
	fields, err := parseObject(raw)
	if err != nil {
		return nil, nil, err
	}

	shaped := &Shaped{}

	if v, ok := present(fields, "model"); ok {
		if err := json.Unmarshal(v, &shaped.Model); err != nil {
			return nil, nil, malformed("model must be a string")
		}
	}
	if shaped.Model == "" {
		shaped.Model = d.Model
		fields["model"] = mustMarshal(d.Model)
	}

	if v, ok := present(fields, "messages"); ok {
		if v[0] != '[' {
			return nil, nil, malformed("messages must be an array")
		}
		shaped.Messages = v
	} else {
		shaped.Messages = emptyMessages
		fields["messages"] = emptyMessages
	}

	if v, ok := present(fields, "temperature"); ok {
		var t float64
		if err := json.Unmarshal(v, &t); err != nil {
			return nil, nil, malformed("temperature must be a number")
		}
	} else {
		fields["temperature"] = mustMarshal(d.Temperature)
	}

	if v, ok := present(fields, "stream"); ok {
		if err := json.Unmarshal(v, &shaped.Stream); err != nil {
			return nil, nil, malformed("stream must be a boolean")
		}
	} else {
		fields["stream"] = falseValue
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, transportFailure(err)
	}
	return out, shaped, nil
}

// parseObject decodes the top level of a body. Empty and null bodies are {}.
func parseObject(raw []byte) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return make(map[string]json.RawMessage), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &Error{Kind: KindMalformedRequest, Message: "Invalid JSON in request body", Err: err}
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	return fields, nil
}

// present returns the trimmed value of key unless it is missing or null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := fields[key]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
