// Package snapshot implements the export and restore pipelines over the
// risk register: collect, assemble and decode snapshot documents, and apply
// them back to a store in dependency order.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// FormatVersion is the snapshot schema version written by this build
	FormatVersion = "3.0"
	// SystemIdentifier is stamped on every exported document
	SystemIdentifier = "risk-register/backup-engine"
	// OriginTag must appear in a document's systemIdentifier for restore to accept it
	OriginTag = "risk-register"
)

// Document is the exported artifact
type Document struct {
	FormatVersion    string         `json:"formatVersion"`
	CreatedAt        time.Time      `json:"createdAt"`
	SystemIdentifier string         `json:"systemIdentifier"`
	EntityGroups     EntityGroups   `json:"entityGroups"`
	Stats            map[string]int `json:"stats"`
}

// EntityGroup holds the serialized records of one entity type
type EntityGroup struct {
	Name    string
	Records []json.RawMessage
}

// EntityGroups is an ordered mapping from group name to records. It encodes
// as a JSON object whose keys keep their slice order.
type EntityGroups []EntityGroup

// Get returns the named group
func (g EntityGroups) Get(name string) (EntityGroup, bool) {
	for _, group := range g {
		if group.Name == name {
			return group, true
		}
	}
	return EntityGroup{}, false
}

// Names returns the group names in document order
func (g EntityGroups) Names() []string {
	names := make([]string, len(g))
	for i, group := range g {
		names[i] = group.Name
	}
	return names
}

// MarshalJSON implements json.Marshaler
func (g EntityGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, group := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(group.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		records := group.Records
		if records == nil {
			records = []json.RawMessage{}
		}
		value, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", group.Name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Every value must be an array.
func (g *EntityGroups) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("entityGroups must be an object")
	}

	groups := EntityGroups{}
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		if seen[name] {
			return fmt.Errorf("entityGroups: duplicate group %q", name)
		}
		seen[name] = true

		var records []json.RawMessage
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("entityGroups.%s must be an array of records", name)
		}
		groups = append(groups, EntityGroup{Name: name, Records: records})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*g = groups
	return nil
}

// Encode serializes the document as indented JSON
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
