package types

// UniverseSnapshot is a consistent read of everything in one universe,
// keyed by stable id per kind. Snapshots feed the diff engine, branch
// cloning, and promotion.
type UniverseSnapshot struct {
	Universe  *Universe
	Arcs      map[string]*Arc
	Stories   map[string]*Story
	Scenes    map[string]*Scene
	Entities  map[string]*Entity
	Facts     map[string]*Fact
	Relations map[string]*RelationState
	Axioms    map[string]*Axiom
}

// NewUniverseSnapshot returns an empty snapshot for the given universe.
func NewUniverseSnapshot(u *Universe) *UniverseSnapshot {
	return &UniverseSnapshot{
		Universe:  u,
		Arcs:      make(map[string]*Arc),
		Stories:   make(map[string]*Story),
		Scenes:    make(map[string]*Scene),
		Entities:  make(map[string]*Entity),
		Facts:     make(map[string]*Fact),
		Relations: make(map[string]*RelationState),
		Axioms:    make(map[string]*Axiom),
	}
}

// SceneByRawID finds a scene by its row id rather than its stable id.
func (s *UniverseSnapshot) SceneByRawID(id string) *Scene {
	for _, sc := range s.Scenes {
		if sc.SceneID == id {
			return sc
		}
	}
	return nil
}

// Counts tallies the snapshot contents per kind.
func (s *UniverseSnapshot) Counts() map[string]int {
	return map[string]int{
		KindArc:      len(s.Arcs),
		KindStory:    len(s.Stories),
		KindScene:    len(s.Scenes),
		KindEntity:   len(s.Entities),
		KindFact:     len(s.Facts),
		KindRelation: len(s.Relations),
	}
}
