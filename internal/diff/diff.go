// Package diff compares two universe snapshots kind by kind. Items are
// matched on stable id, so a branch and its source line up even though
// every cloned row carries a fresh raw id; unrelated universes degenerate
// to pure presence/absence.
package diff

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/storymesh/weft/pkg/types"
)

// Compute diffs snapshot a against snapshot b. Added means present in b and
// absent from a; removed the reverse; changed items carry a field-by-field
// delta. Pure computation, no storage access.
func Compute(a, b *types.UniverseSnapshot) *types.TypedDiff {
	d := &types.TypedDiff{
		UniverseA: a.Universe.UniverseID,
		UniverseB: b.Universe.UniverseID,
		Kinds:     make(map[string]*types.KindDiff),
	}

	diffKind(d, types.KindArc, keys(a.Arcs), keys(b.Arcs), func(id string) []types.FieldChange {
		return arcFields(a.Arcs[id], b.Arcs[id])
	})
	diffKind(d, types.KindStory, keys(a.Stories), keys(b.Stories), func(id string) []types.FieldChange {
		return storyFields(a.Stories[id], b.Stories[id])
	})
	diffKind(d, types.KindScene, keys(a.Scenes), keys(b.Scenes), func(id string) []types.FieldChange {
		return sceneFields(a.Scenes[id], b.Scenes[id])
	})
	diffKind(d, types.KindEntity, keys(a.Entities), keys(b.Entities), func(id string) []types.FieldChange {
		return entityFields(a.Entities[id], b.Entities[id])
	})
	// Raw entity ids differ across branches, so participant and endpoint
	// references are compared through their stable ids.
	aEntities := entityStableIDs(a)
	bEntities := entityStableIDs(b)
	diffKind(d, types.KindFact, keys(a.Facts), keys(b.Facts), func(id string) []types.FieldChange {
		return factFields(a.Facts[id], b.Facts[id], aEntities, bEntities)
	})
	diffKind(d, types.KindRelation, keys(a.Relations), keys(b.Relations), func(id string) []types.FieldChange {
		return relationFields(a.Relations[id], b.Relations[id], aEntities, bEntities)
	})

	d.ProvenanceCounts = provenanceCounts(b, d)
	return d
}

func keys[T any](m map[string]T) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

// diffKind partitions the stable id sets of one kind and computes field
// deltas for the intersection.
func diffKind(d *types.TypedDiff, kind string, inA, inB map[string]bool, fields func(id string) []types.FieldChange) {
	bucket := d.Kind(kind)
	for id := range inB {
		if !inA[id] {
			bucket.Added = append(bucket.Added, id)
			continue
		}
		if changes := fields(id); len(changes) > 0 {
			bucket.Changed = append(bucket.Changed, types.ItemChange{StableID: id, Fields: changes})
		}
	}
	for id := range inA {
		if !inB[id] {
			bucket.Removed = append(bucket.Removed, id)
		}
	}
	sort.Strings(bucket.Added)
	sort.Strings(bucket.Removed)
	sort.Slice(bucket.Changed, func(i, j int) bool {
		return bucket.Changed[i].StableID < bucket.Changed[j].StableID
	})
}

// provenanceCounts tallies added facts and relation states per originating
// scene stable id in b.
func provenanceCounts(b *types.UniverseSnapshot, d *types.TypedDiff) map[string]int {
	sceneStable := make(map[string]string, len(b.Scenes))
	for stableID, sc := range b.Scenes {
		sceneStable[sc.SceneID] = stableID
	}
	counts := make(map[string]int)
	for _, id := range d.Kind(types.KindFact).Added {
		if f, ok := b.Facts[id]; ok && f.SceneID != "" {
			counts[stableScene(sceneStable, f.SceneID)]++
		}
	}
	for _, id := range d.Kind(types.KindRelation).Added {
		if r, ok := b.Relations[id]; ok && r.SetInScene != "" {
			counts[stableScene(sceneStable, r.SetInScene)]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	return counts
}

func stableScene(sceneStable map[string]string, rawID string) string {
	if stableID, ok := sceneStable[rawID]; ok {
		return stableID
	}
	return rawID
}

// Field extractors. Raw ids, lineage, and timestamps of record keeping are
// identity, not content, and are excluded from change detection.

func arcFields(a, b *types.Arc) []types.FieldChange {
	var out []types.FieldChange
	out = appendChange(out, "title", a.Title, b.Title)
	out = appendChange(out, "sequence_index", strconv.Itoa(a.SequenceIndex), strconv.Itoa(b.SequenceIndex))
	return out
}

func storyFields(a, b *types.Story) []types.FieldChange {
	var out []types.FieldChange
	out = appendChange(out, "title", a.Title, b.Title)
	out = appendChange(out, "summary", a.Summary, b.Summary)
	out = appendChange(out, "sequence_index", strconv.Itoa(a.SequenceIndex), strconv.Itoa(b.SequenceIndex))
	return out
}

func sceneFields(a, b *types.Scene) []types.FieldChange {
	var out []types.FieldChange
	out = appendChange(out, "title", a.Title, b.Title)
	out = appendChange(out, "sequence_index", strconv.Itoa(a.SequenceIndex), strconv.Itoa(b.SequenceIndex))
	out = appendChange(out, "when", timeString(a.When), timeString(b.When))
	out = appendChange(out, "location", a.Location, b.Location)
	return out
}

func entityFields(a, b *types.Entity) []types.FieldChange {
	var out []types.FieldChange
	out = appendChange(out, "kind", a.Kind, b.Kind)
	out = appendChange(out, "name", a.Name, b.Name)
	if !a.Attrs.Equal(b.Attrs) {
		out = append(out, types.FieldChange{
			Field: "attrs",
			From:  canonicalAttrs(a.Attrs),
			To:    canonicalAttrs(b.Attrs),
		})
	}
	return out
}

func factFields(a, b *types.Fact, aEntities, bEntities map[string]string) []types.FieldChange {
	var out []types.FieldChange
	out = appendChange(out, "description", a.Description, b.Description)
	out = appendChange(out, "at", timeString(a.At), timeString(b.At))
	out = appendChange(out, "span_start", timeString(a.SpanStart), timeString(b.SpanStart))
	out = appendChange(out, "span_end", timeString(a.SpanEnd), timeString(b.SpanEnd))
	out = appendChange(out, "confidence",
		strconv.FormatFloat(a.Confidence, 'f', -1, 64),
		strconv.FormatFloat(b.Confidence, 'f', -1, 64))
	out = appendChange(out, "participants",
		participantString(a.Participants, aEntities),
		participantString(b.Participants, bEntities))
	return out
}

func relationFields(a, b *types.RelationState, aEntities, bEntities map[string]string) []types.FieldChange {
	var out []types.FieldChange
	out = appendChange(out, "type", a.Type, b.Type)
	out = appendChange(out, "entity_a", stableRef(aEntities, a.EntityA), stableRef(bEntities, b.EntityA))
	out = appendChange(out, "entity_b", stableRef(aEntities, a.EntityB), stableRef(bEntities, b.EntityB))
	out = appendChange(out, "started_at", a.StartedAt.UTC().Format(time.RFC3339Nano), b.StartedAt.UTC().Format(time.RFC3339Nano))
	out = appendChange(out, "ended_at", timeString(a.EndedAt), timeString(b.EndedAt))
	return out
}

// entityStableIDs maps raw entity ids to their stable ids in one snapshot.
func entityStableIDs(snap *types.UniverseSnapshot) map[string]string {
	out := make(map[string]string, len(snap.Entities))
	for stableID, e := range snap.Entities {
		out[e.EntityID] = stableID
	}
	return out
}

func stableRef(stable map[string]string, rawID string) string {
	if id, ok := stable[rawID]; ok {
		return id
	}
	return rawID
}

func appendChange(out []types.FieldChange, field, from, to string) []types.FieldChange {
	if from == to {
		return out
	}
	return append(out, types.FieldChange{Field: field, From: from, To: to})
}

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// canonicalAttrs renders an attribute map with sorted keys so equal maps
// produce equal strings.
func canonicalAttrs(attrs types.Attrs) string {
	if len(attrs) == 0 {
		return "{}"
	}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		value, _ := json.Marshal(attrs[k])
		sb.Write(key)
		sb.WriteByte(':')
		sb.Write(value)
	}
	sb.WriteByte('}')
	return sb.String()
}

func participantString(ps []types.FactParticipant, entities map[string]string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprintf("%s:%s", stableRef(entities, p.EntityID), p.Role)
	}
	return strings.Join(parts, ",")
}
