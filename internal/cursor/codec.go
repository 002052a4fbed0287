// Package cursor implements the opaque pagination cursor shared by every
// feed surface. Cursors are not signed: they only need to round-trip.
package cursor

import (
	"encoding/base64"
	"time"

	"github.com/goccy/go-json"

	"memoria/internal/core"
)

type wire struct {
	T  int64  `json:"t"`
	ID int64  `json:"id"`
	K  string `json:"k,omitempty"`
}

// Encode serializes c as base64url(JSON).
func Encode(c core.Cursor) string {
	data, err := json.Marshal(wire{
		T:  c.CreatedAt.UnixNano(),
		ID: c.ID,
		K:  string(c.Kind),
	})
	if err != nil {
		// Marshalling three scalars cannot fail.
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses an encoded cursor. Anything malformed yields ok=false, which
// callers treat as "start from the newest item".
func Decode(s string) (c core.Cursor, ok bool) {
	if s == "" {
		return core.Cursor{}, false
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return core.Cursor{}, false
	}

	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return core.Cursor{}, false
	}

	kind := core.ItemKind(w.K)
	switch kind {
	case "", core.KindMemory, core.KindReshare:
	default:
		return core.Cursor{}, false
	}

	if w.ID <= 0 || w.T <= 0 {
		return core.Cursor{}, false
	}

	return core.Cursor{
		CreatedAt: time.Unix(0, w.T).UTC(),
		ID:        w.ID,
		Kind:      kind,
	}, true
}

// DecodePtr is Decode for optional cursors.
func DecodePtr(s string) *core.Cursor {
	c, ok := Decode(s)
	if !ok {
		return nil
	}
	return &c
}
