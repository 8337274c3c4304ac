package metadata

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func TestNew_Normalizes(t *testing.T) {
	md, err := New(map[string]any{
		"page":   3,
		"ratio":  float32(0.5),
		"source": "cms",
		"draft":  false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := md.Get("page"); v != int64(3) {
		t.Errorf("page = %#v, want int64(3)", v)
	}
	if v, _ := md.Get("ratio"); v != float64(0.5) {
		t.Errorf("ratio = %#v, want float64(0.5)", v)
	}
	if md.String("source") != "cms" {
		t.Errorf("source = %q", md.String("source"))
	}
	if md.Len() != 4 {
		t.Errorf("Len() = %d, want 4", md.Len())
	}
}

func TestNew_RejectsNonScalar(t *testing.T) {
	for _, v := range []any{[]string{"a"}, map[string]any{"x": 1}, nil, struct{}{}} {
		_, err := New(map[string]any{"k": v})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("value %#v: expected ErrInvalidRequest, got %v", v, err)
		}
	}
}

func TestNew_RejectsEmptyKey(t *testing.T) {
	_, err := New(map[string]any{"": "x"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	in := map[string]any{"a": "1"}
	md, err := New(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in["a"] = "2"
	if md.String("a") != "1" {
		t.Error("metadata must not alias caller map")
	}
	out := md.Map()
	out["a"] = "3"
	if md.String("a") != "1" {
		t.Error("Map() must return a copy")
	}
}

func TestPayload_TextWins(t *testing.T) {
	md := FromStrings(map[string]string{"text": "from metadata", "filename": "a.txt"})

	p := md.Payload("chunk body")
	if p[TextKey] != "chunk body" {
		t.Errorf("text = %v, want chunk body", p[TextKey])
	}
	if p["filename"] != "a.txt" {
		t.Errorf("filename = %v", p["filename"])
	}
	if md.String("text") != "from metadata" {
		t.Error("Payload must not mutate metadata")
	}
}

func TestMerge_OtherWins(t *testing.T) {
	a := FromStrings(map[string]string{"filename": "a.txt", "file_type": "txt"})
	b := FromStrings(map[string]string{"filename": "b.txt"})

	m := a.Merge(b)
	if m.String("filename") != "b.txt" || m.String("file_type") != "txt" {
		t.Errorf("unexpected merge: %v", m.Map())
	}
	if a.String("filename") != "a.txt" {
		t.Error("Merge must not mutate receiver")
	}
}

func TestParsePayload(t *testing.T) {
	md, _ := New(map[string]any{"filename": "r.csv", "page": 2, "score": 0.25, "ok": true})
	data, err := md.MarshalPayload("hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, got, err := ParsePayload(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
	if _, ok := got.Get(TextKey); ok {
		t.Error("text key must be stripped from metadata")
	}
	if v, _ := got.Get("page"); v != int64(2) {
		t.Errorf("page = %#v, want int64(2)", v)
	}
	if v, _ := got.Get("score"); v != 0.25 {
		t.Errorf("score = %#v, want 0.25", v)
	}
	if v, _ := got.Get("ok"); v != true {
		t.Errorf("ok = %#v, want true", v)
	}
}

func TestParsePayload_Invalid(t *testing.T) {
	if _, _, err := ParsePayload([]byte("not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestJSON(t *testing.T) {
	var md Metadata
	if err := json.Unmarshal([]byte(`{"source":"cms","n":7}`), &md); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := md.Get("n"); v != int64(7) {
		t.Errorf("n = %#v", v)
	}

	b, err := json.Marshal(Metadata{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "{}" {
		t.Errorf("empty metadata = %s, want {}", b)
	}

	keys := md.Keys()
	if len(keys) != 2 || keys[0] != "n" || keys[1] != "source" {
		t.Errorf("Keys() = %v", keys)
	}
}
