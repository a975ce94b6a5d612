package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Metadata holds free-form string tags attached to ledger records. Encoding
// is deterministic (keys sorted) so stored JSON is stable across writes.
type Metadata map[string]string

const (
	MaxPairs     = 20
	MaxKeyLen    = 64
	MaxValLen    = 256
	MaxTotalJSON = 4096
)

var (
	errTooManyPairs = errors.New("metadata: too many pairs")
	errBadKey       = errors.New("metadata: key empty or too long")
	errBadValue     = errors.New("metadata: value too long")
	errTooLarge     = errors.New("metadata: exceeds max encoded size")
)

// New copies m into a Metadata value. A nil map yields an empty Metadata.
func New(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	return New(m)
}

// Validate enforces the pair, key, value and encoded-size limits.
func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return errTooManyPairs
	}
	for k, v := range m {
		if len(k) == 0 || len(k) > MaxKeyLen {
			return errBadKey
		}
		if len(v) > MaxValLen {
			return errBadValue
		}
	}
	b, err := m.MarshalStableJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxTotalJSON {
		return errTooLarge
	}
	return nil
}

// MarshalStableJSON encodes the map with keys in sorted order.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
