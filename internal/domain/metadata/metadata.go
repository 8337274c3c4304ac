package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// TextKey is the reserved payload key holding the chunk text.
const TextKey = "text"

// Metadata is an immutable mapping from string keys to scalar values
// (string, bool, int64, float64).
type Metadata struct {
	values map[string]any
}

// New validates values and creates Metadata. Integer kinds are widened to int64,
// float kinds to float64; json.Number is parsed. Anything non-scalar is rejected.
func New(values map[string]any) (Metadata, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if k == "" {
			return Metadata{}, fmt.Errorf("metadata key is empty: %w", domain.ErrInvalidRequest)
		}
		nv, err := normalize(v)
		if err != nil {
			return Metadata{}, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = nv
	}
	return Metadata{values: out}, nil
}

// FromStrings creates Metadata from string pairs.
func FromStrings(values map[string]string) Metadata {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return Metadata{values: out}
}

// Merge returns a copy of m overlaid by other; keys in other win.
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(map[string]any, len(m.values)+len(other.values))
	maps.Copy(out, m.values)
	maps.Copy(out, other.values)
	return Metadata{values: out}
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (m Metadata) String(key string) string {
	s, _ := m.values[key].(string)
	return s
}

// Len returns the number of keys.
func (m Metadata) Len() int { return len(m.values) }

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	return slices.Sorted(maps.Keys(m.values))
}

// Map returns a copy of the underlying values.
func (m Metadata) Map() map[string]any {
	return maps.Clone(m.values)
}

// Payload returns the stored point payload for a chunk: metadata plus the text
// under TextKey. The chunk text always wins over a "text" metadata key.
func (m Metadata) Payload(text string) map[string]any {
	out := make(map[string]any, len(m.values)+1)
	maps.Copy(out, m.values)
	out[TextKey] = text
	return out
}

// MarshalPayload encodes Payload(text) as JSON.
func (m Metadata) MarshalPayload(text string) ([]byte, error) {
	b, err := json.Marshal(m.Payload(text))
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b, nil
}

// ParsePayload decodes a JSON payload into the chunk text and the remaining metadata.
func ParsePayload(data []byte) (string, Metadata, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return "", Metadata{}, fmt.Errorf("decode payload: %w", err)
	}

	text, _ := raw[TextKey].(string)
	delete(raw, TextKey)

	md, err := New(raw)
	if err != nil {
		return "", Metadata{}, err
	}
	return text, md, nil
}

// MarshalJSON implements json.Marshaler.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.values == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m.values)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return b, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	md, err := New(raw)
	if err != nil {
		return err
	}
	*m = md
	return nil
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, domain.ErrInvalidRequest)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T: %w", v, domain.ErrInvalidRequest)
	}
}
