package types

// Entity kinds partitioning a typed diff.
const (
	KindArc      = "arc"
	KindStory    = "story"
	KindScene    = "scene"
	KindEntity   = "entity"
	KindFact     = "fact"
	KindRelation = "relation_state"
)

// DiffKinds lists the diffed kinds in application order: containers before
// the items that reference them.
var DiffKinds = []string{KindArc, KindStory, KindScene, KindEntity, KindFact, KindRelation}

// FieldChange is one attribute-level difference inside a changed item.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ItemChange is a changed item with its field-by-field delta.
type ItemChange struct {
	StableID string        `json:"stable_id"`
	Fields   []FieldChange `json:"fields"`
}

// KindDiff partitions one entity kind into added, changed, and removed
// stable ids. Added means present in B and absent from A; removed the
// reverse.
type KindDiff struct {
	Added   []string     `json:"added,omitempty"`
	Changed []ItemChange `json:"changed,omitempty"`
	Removed []string     `json:"removed,omitempty"`
}

// Empty reports whether the kind shows no differences.
func (k *KindDiff) Empty() bool {
	return len(k.Added) == 0 && len(k.Changed) == 0 && len(k.Removed) == 0
}

// TypedDiff is a per-kind comparison of two universes. When the universes
// share ancestry the comparison is by stable id; for unrelated universes it
// degenerates to presence/absence.
type TypedDiff struct {
	UniverseA string               `json:"universe_a"`
	UniverseB string               `json:"universe_b"`
	Kinds     map[string]*KindDiff `json:"kinds"`
	// ProvenanceCounts tallies added items per originating scene stable
	// id, to aid human review of where a branch diverged.
	ProvenanceCounts map[string]int `json:"provenance_counts,omitempty"`
}

// Kind returns the diff bucket for the given kind, creating it on demand.
func (d *TypedDiff) Kind(kind string) *KindDiff {
	if d.Kinds == nil {
		d.Kinds = make(map[string]*KindDiff)
	}
	k, ok := d.Kinds[kind]
	if !ok {
		k = &KindDiff{}
		d.Kinds[kind] = k
	}
	return k
}

// Empty reports whether the two universes show no differences.
func (d *TypedDiff) Empty() bool {
	for _, k := range d.Kinds {
		if !k.Empty() {
			return false
		}
	}
	return true
}
