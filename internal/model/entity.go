package model

// EntityType identifies the kind of value an entity carries.
type EntityType string

// Entity type constants.
const (
	EntityAmount        EntityType = "amount"
	EntityRecipient     EntityType = "recipient"
	EntityAccount       EntityType = "account"
	EntitySourceAccount EntityType = "source_account"
	EntityDate          EntityType = "date"
	EntityCurrency      EntityType = "currency"
	EntityMemo          EntityType = "memo"
)

// EntitySource records how an entity value was obtained.
type EntitySource string

// Entity source constants.
const (
	SourceExtracted  EntitySource = "extracted"
	SourceInferred   EntitySource = "inferred"
	SourceContextual EntitySource = "contextual"
	SourceEnriched   EntitySource = "enriched"
)

// Entity is a typed value extracted from or inferred for an utterance.
// An entity is owned by the turn that produced it until the resolver merges
// it into session memory.
type Entity struct {
	Type       EntityType   `json:"type"`
	Value      string       `json:"value"`
	Number     float64      `json:"number,omitempty"` // populated for amount entities
	RawText    string       `json:"raw_text,omitempty"`
	Confidence float64      `json:"confidence"`
	Source     EntitySource `json:"source"`
}

// EntityMap is the per-turn collection of resolved entities keyed by type.
type EntityMap map[EntityType]Entity

// Clone returns a copy of the map safe to mutate independently.
func (m EntityMap) Clone() EntityMap {
	if m == nil {
		return nil
	}
	out := make(EntityMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Missing returns the entity types in required that have no entry in m.
func (m EntityMap) Missing(required []EntityType) []EntityType {
	var missing []EntityType
	for _, t := range required {
		if _, ok := m[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}
