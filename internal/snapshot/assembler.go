package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Assembler builds documents from collected groups. It performs no I/O.
type Assembler struct {
	FormatVersion    string
	SystemIdentifier string
}

// NewAssembler returns an assembler stamping the current format version
// and the given system identifier.
func NewAssembler(systemIdentifier string) *Assembler {
	if systemIdentifier == "" {
		systemIdentifier = SystemIdentifier
	}
	return &Assembler{FormatVersion: FormatVersion, SystemIdentifier: systemIdentifier}
}

// Assemble groups records under their type names and computes stats.
// The same collection and timestamp always produce the same document.
func (a *Assembler) Assemble(collection Collection, createdAt time.Time) (*Document, error) {
	doc := &Document{
		FormatVersion:    a.FormatVersion,
		CreatedAt:        createdAt.UTC(),
		SystemIdentifier: a.SystemIdentifier,
		EntityGroups:     make(EntityGroups, 0, len(collection)),
		Stats:            make(map[string]int, len(collection)),
	}

	for _, group := range collection {
		records := make([]json.RawMessage, len(group.Records))
		for i, rec := range group.Records {
			raw, err := json.Marshal(rec)
			if err != nil {
				return nil, fmt.Errorf("encode %s %s: %w", group.Name, rec.NaturalKey(), err)
			}
			records[i] = raw
		}

		doc.EntityGroups = append(doc.EntityGroups, EntityGroup{Name: group.Name, Records: records})
		doc.Stats[group.Name] = len(records)
	}

	return doc, nil
}
