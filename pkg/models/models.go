package models

// AnimalRecord is the structured result of parsing one detail page.
// Name always comes from the page heading; Type and Features are best effort
// and may be empty.
type AnimalRecord struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Features string `json:"features"`
}

// IsComplete reports whether the record may be persisted
func (r AnimalRecord) IsComplete() bool {
	return r.Type != ""
}

// AnimalRecordCollection is an ordered set of records, persisted as one JSON array
type AnimalRecordCollection []AnimalRecord

// Complete returns the records with a non-empty Type, keeping their order
func (c AnimalRecordCollection) Complete() AnimalRecordCollection {
	kept := make(AnimalRecordCollection, 0, len(c))
	for _, r := range c {
		if r.IsComplete() {
			kept = append(kept, r)
		}
	}
	return kept
}

// Names returns the record names in order
func (c AnimalRecordCollection) Names() []string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name
	}
	return names
}
