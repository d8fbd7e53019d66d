package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// FieldType is the canonical in-memory type vocabulary for PIM attributes.
type FieldType string

const (
	FieldText     FieldType = "Text"
	FieldNumber   FieldType = "Number"
	FieldBoolean  FieldType = "Boolean"
	FieldDate     FieldType = "Date"
	FieldLongText FieldType = "Long Text"
	FieldRichText FieldType = "Rich Text"
	FieldDropdown FieldType = "Dropdown"
)

// wireTypeMap normalizes the loose uppercase type vocabulary seen on the wire
// to the canonical set. Applied on every read; writes emit canonical values as-is.
var wireTypeMap = map[string]FieldType{
	"TEXT":      FieldText,
	"STRING":    FieldText,
	"NUMBER":    FieldNumber,
	"BOOLEAN":   FieldBoolean,
	"DATE":      FieldDate,
	"LONG TEXT": FieldLongText,
	"LONGTEXT":  FieldLongText,
	"RICH TEXT": FieldRichText,
	"RICHTEXT":  FieldRichText,
	"DROPDOWN":  FieldDropdown,
	"PICKLIST":  FieldDropdown,
}

// NormalizeFieldType converts a wire-format type string to the canonical vocabulary.
// Unrecognized values fall back to Text.
func NormalizeFieldType(raw string) FieldType {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if t, ok := wireTypeMap[key]; ok {
		return t
	}
	return FieldText
}

// localIDCounter backs transient identifier generation. Seeded from the clock so
// ids remain distinguishable across restarts within one editing day, monotonic
// within a process.
var localIDCounter atomic.Int64

func init() {
	localIDCounter.Store(time.Now().UnixMilli())
}

// EntityID identifies a section, attribute, or template under the dual-id regime:
// entities persisted by the backing store carry an opaque string id, entities
// created locally and not yet saved carry a process-local numeric id. Exactly one
// regime is set. Deletion tracking must only ever record persisted ids.
//
// A third, narrow regime exists for derived entities (calculated fields): a
// session-scoped string id that reads like a persisted id in mapping entries
// but never reports Persisted and never reaches the store.
type EntityID struct {
	saved  string
	local  int64
	scoped string
}

// NewLocalID mints a transient identifier for a not-yet-persisted entity.
func NewLocalID() EntityID {
	return EntityID{local: localIDCounter.Add(1)}
}

// SavedID wraps a backend-assigned identifier.
func SavedID(id string) EntityID {
	return EntityID{saved: id}
}

// ScopedID wraps a session-scoped string identifier for a derived entity that
// is never persisted and never eligible for deletion tracking.
func ScopedID(id string) EntityID {
	return EntityID{scoped: id}
}

// Persisted reports whether the id was assigned by the backing store.
func (id EntityID) Persisted() bool {
	return id.saved != ""
}

// Saved returns the backend-assigned id, empty for transient ids.
func (id EntityID) Saved() string {
	return id.saved
}

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool {
	return id.saved == "" && id.local == 0 && id.scoped == ""
}

func (id EntityID) String() string {
	if id.saved != "" {
		return id.saved
	}
	if id.scoped != "" {
		return id.scoped
	}
	return fmt.Sprintf("%d", id.local)
}

// MarshalJSON emits persisted and session-scoped ids as strings and transient
// ids as numbers, preserving the wire distinction between the regimes.
func (id EntityID) MarshalJSON() ([]byte, error) {
	if id.saved != "" {
		return json.Marshal(id.saved)
	}
	if id.scoped != "" {
		return json.Marshal(id.scoped)
	}
	if id.local != 0 {
		return json.Marshal(id.local)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a string (persisted), a number (transient), or null.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = EntityID{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*id = EntityID{saved: v}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entity id must be a string or number: %w", err)
	}
	*id = EntityID{local: n}
	return nil
}

// Attribute is a single typed PIM field within a section.
type Attribute struct {
	ID            EntityID  `json:"id"`
	Name          string    `json:"name"`
	Type          FieldType `json:"type"`
	Required      bool      `json:"required"`
	Order         int       `json:"order"`
	Options       []string  `json:"options,omitempty"`
	IsCalculative bool      `json:"isCalculative,omitempty"`
	Formula       string    `json:"formula,omitempty"`
}

// Validate checks the invariants a saved attribute must satisfy.
func (a *Attribute) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("attribute name is required")
	}
	if a.Type == FieldDropdown && a.Options == nil {
		return fmt.Errorf("attribute %q: dropdown attributes must carry an options list", a.Name)
	}
	if a.IsCalculative && strings.TrimSpace(a.Formula) == "" {
		return fmt.Errorf("attribute %q: calculated attributes require a formula", a.Name)
	}
	return nil
}

// Section is a named, ordered group of attributes within a view template.
type Section struct {
	ID         EntityID    `json:"id"`
	Title      string      `json:"title"`
	Order      int         `json:"order"`
	Attributes []Attribute `json:"attributes"`
}

// Validate checks the section and all of its attributes.
func (s *Section) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("section title is required")
	}
	for i := range s.Attributes {
		if err := s.Attributes[i].Validate(); err != nil {
			return fmt.Errorf("section %q: %w", s.Title, err)
		}
	}
	return nil
}
