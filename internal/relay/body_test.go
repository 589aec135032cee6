package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("output is not a JSON object: %v (%s)", err, b)
	}
	return m
}

func TestBuildUpstreamBody_AppliesOnlyMissingDefaults(t *testing.T) {
	in := []byte(`{"model":"m","messages":[{"role":"user","content":"hi"}],"temperature":0.5}`)

	out, shaped, err := BuildUpstreamBody(in, DefaultDefaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"model":       "m",
		"messages":    []any{map[string]any{"role": "user", "content": "hi"}},
		"temperature": 0.5,
		"stream":      false,
	}
	if got := decode(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("body = %v, want %v", got, want)
	}
	if shaped.Model != "m" || shaped.Stream {
		t.Errorf("shaped = %+v", shaped)
	}
	if string(shaped.Messages) != `[{"role":"user","content":"hi"}]` {
		t.Errorf("shaped.Messages = %s", shaped.Messages)
	}
}

func TestBuildUpstreamBody_EmptyInputs(t *testing.T) {
	want := map[string]any{
		"model":       "deepseek-chat",
		"messages":    []any{},
		"temperature": 0.2,
		"stream":      false,
	}

	for _, in := range []string{`{}`, ``, `   `, `null`, `{"model":null,"messages":null,"temperature":null,"stream":null}`, `{"model":""}`} {
		t.Run(in, func(t *testing.T) {
			out, _, err := BuildUpstreamBody([]byte(in), DefaultDefaults)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := decode(t, out); !reflect.DeepEqual(got, want) {
				t.Errorf("body = %v, want %v", got, want)
			}
		})
	}
}

func TestBuildUpstreamBody_PassesThroughOtherFields(t *testing.T) {
	in := []byte(`{"max_tokens":256,"top_p":0.9,"stream":true,"response_format":{"type":"json_object"}}`)

	out, shaped, err := BuildUpstreamBody(in, DefaultDefaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := decode(t, out)
	if got["max_tokens"] != float64(256) || got["top_p"] != 0.9 {
		t.Errorf("extra fields dropped: %v", got)
	}
	if !reflect.DeepEqual(got["response_format"], map[string]any{"type": "json_object"}) {
		t.Errorf("response_format = %v", got["response_format"])
	}
	if got["stream"] != true || !shaped.Stream {
		t.Errorf("stream = %v, shaped.Stream = %v", got["stream"], shaped.Stream)
	}
}

func TestBuildUpstreamBody_CustomDefaults(t *testing.T) {
	out, _, err := BuildUpstreamBody([]byte(`{}`), Defaults{Model: "deepseek-reasoner", Temperature: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := decode(t, out)
	if got["model"] != "deepseek-reasoner" || got["temperature"] != float64(0) {
		t.Errorf("body = %v", got)
	}
}

func TestBuildUpstreamBody_Deterministic(t *testing.T) {
	in := []byte(`{"temperature":1,"messages":[{"role":"user","content":"a"}],"z":1,"a":2}`)

	first, _, err := BuildUpstreamBody(in, DefaultDefaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _, _ := BuildUpstreamBody(in, DefaultDefaults)
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}
}

func TestBuildUpstreamBody_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid JSON", `{"model":`, "Invalid JSON in request body"},
		{"array body", `[1,2]`, "Invalid JSON in request body"},
		{"string body", `"hello"`, "Invalid JSON in request body"},
		{"model not string", `{"model":42}`, "model must be a string"},
		{"messages not array", `{"messages":{"role":"user"}}`, "messages must be an array"},
		{"temperature not number", `{"temperature":"hot"}`, "temperature must be a number"},
		{"stream not bool", `{"stream":"yes"}`, "stream must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildUpstreamBody([]byte(tt.body), DefaultDefaults)
			var rerr *Error
			if !errors.As(err, &rerr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if rerr.Kind != KindMalformedRequest {
				t.Errorf("Kind = %v, want %v", rerr.Kind, KindMalformedRequest)
			}
			if rerr.Message != tt.message {
				t.Errorf("Message = %q, want %q", rerr.Message, tt.message)
			}
		})
	}
}
