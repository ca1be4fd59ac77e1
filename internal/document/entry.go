package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entry is one submitted child record. It is either New (no identity) or
// Existing (claims the identity of a persisted row). A claimed identity that
// the store does not hold for the document is resolved as New during
// reconciliation, which covers client-local placeholder ids.
type Entry[F any] struct {
	id     uint
	Fields F
}

// New returns an entry without identity.
func New[F any](fields F) Entry[F] {
	return Entry[F]{Fields: fields}
}

// Existing returns an entry claiming row id. Zero means New.
func Existing[F any](id uint, fields F) Entry[F] {
	return Entry[F]{id: id, Fields: fields}
}

// ID reports the claimed identity.
func (e Entry[F]) ID() (uint, bool) {
	return e.id, e.id != 0
}

// UnmarshalJSON reads the collection fields plus the optional "id" and
// "is_new" keys. Non-numeric ids are treated as placeholders.
func (e *Entry[F]) UnmarshalJSON(data []byte) error {
	var ident struct {
		ID    json.RawMessage `json:"id"`
		IsNew bool            `json:"is_new"`
	}
	if err := json.Unmarshal(data, &ident); err != nil {
		return fmt.Errorf("decode entry identity: %w", err)
	}

	var fields F
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*e = Entry[F]{Fields: fields}
	if !ident.IsNew {
		e.id = parseEntryID(ident.ID)
	}
	return nil
}

// MarshalJSON writes the fields with "id" first when the entry has one.
func (e Entry[F]) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(e.Fields)
	if err != nil {
		return nil, err
	}
	if e.id == 0 {
		return body, nil
	}

	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("entry fields must encode as an object")
	}

	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.WriteString(strconv.FormatUint(uint64(e.id), 10))
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func parseEntryID(raw json.RawMessage) uint {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return 0
	}
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0
	}
	return uint(id)
}
