package sqlite

// Schema DDL for all tables. Narrative rows carry universe_id for partition
// scoping and origin_id for clone lineage; timestamps are RFC3339 TEXT.
const (
	createUniverses = `CREATE TABLE IF NOT EXISTS universes (
    universe_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    derives_from TEXT,
    origin_scene_id TEXT,
    created_at TEXT NOT NULL
);`

	createArcs = `CREATE TABLE IF NOT EXISTS arcs (
    arc_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    title TEXT NOT NULL,
    sequence_index INTEGER NOT NULL,
    next_arc_id TEXT,
    created_at TEXT NOT NULL
);`

	createStories = `CREATE TABLE IF NOT EXISTS stories (
    story_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    arc_id TEXT,
    title TEXT NOT NULL,
    summary TEXT,
    sequence_index INTEGER NOT NULL,
    next_story_id TEXT,
    created_at TEXT NOT NULL
);`

	createScenes = `CREATE TABLE IF NOT EXISTS scenes (
    scene_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    story_id TEXT NOT NULL,
    title TEXT NOT NULL,
    sequence_index INTEGER NOT NULL,
    next_scene_id TEXT,
    when_at TEXT,
    location TEXT,
    created_at TEXT NOT NULL
);`

	createEntities = `CREATE TABLE IF NOT EXISTS entities (
    entity_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    attrs TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createFacts = `CREATE TABLE IF NOT EXISTS facts (
    fact_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    scene_id TEXT NOT NULL,
    description TEXT NOT NULL,
    at_time TEXT,
    span_start TEXT,
    span_end TEXT,
    confidence REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);`

	createFactParticipants = `CREATE TABLE IF NOT EXISTS fact_participants (
    fact_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    entity_id TEXT NOT NULL,
    role TEXT,
    PRIMARY KEY (fact_id, position)
);`

	createFactDerivations = `CREATE TABLE IF NOT EXISTS fact_derivations (
    fact_id TEXT NOT NULL,
    derived_from_id TEXT NOT NULL,
    PRIMARY KEY (fact_id, derived_from_id)
);`

	createRelationStates = `CREATE TABLE IF NOT EXISTS relation_states (
    relation_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    relation_type TEXT NOT NULL,
    entity_a TEXT NOT NULL,
    entity_b TEXT NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT,
    set_in_scene TEXT,
    changed_in_scenes TEXT NOT NULL DEFAULT '[]',
    ended_in_scene TEXT,
    created_at TEXT NOT NULL
);`

	createAxioms = `CREATE TABLE IF NOT EXISTS axioms (
    axiom_id TEXT PRIMARY KEY,
    universe_id TEXT NOT NULL,
    origin_id TEXT,
    story_id TEXT,
    semantics TEXT NOT NULL,
    archetype TEXT NOT NULL,
    min_count INTEGER NOT NULL DEFAULT 0,
    description TEXT,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxUniversesParent   = `CREATE INDEX IF NOT EXISTS idx_universes_parent ON universes(derives_from);`
	idxArcsUniverse      = `CREATE INDEX IF NOT EXISTS idx_arcs_universe ON arcs(universe_id);`
	idxStoriesUniverse   = `CREATE INDEX IF NOT EXISTS idx_stories_universe ON stories(universe_id);`
	idxScenesUniverse    = `CREATE INDEX IF NOT EXISTS idx_scenes_universe ON scenes(universe_id);`
	idxScenesStory       = `CREATE INDEX IF NOT EXISTS idx_scenes_story ON scenes(story_id, sequence_index);`
	idxEntitiesUniverse  = `CREATE INDEX IF NOT EXISTS idx_entities_universe ON entities(universe_id);`
	idxEntitiesKind      = `CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(universe_id, kind);`
	idxFactsUniverse     = `CREATE INDEX IF NOT EXISTS idx_facts_universe ON facts(universe_id);`
	idxFactsScene        = `CREATE INDEX IF NOT EXISTS idx_facts_scene ON facts(scene_id);`
	idxRelationsUniverse = `CREATE INDEX IF NOT EXISTS idx_relations_universe ON relation_states(universe_id);`
	idxRelationsPair     = `CREATE INDEX IF NOT EXISTS idx_relations_pair ON relation_states(universe_id, entity_a, entity_b, relation_type);`
	idxAxiomsUniverse    = `CREATE INDEX IF NOT EXISTS idx_axioms_universe ON axioms(universe_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createUniverses,
	createArcs,
	createStories,
	createScenes,
	createEntities,
	createFacts,
	createFactParticipants,
	createFactDerivations,
	createRelationStates,
	createAxioms,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxUniversesParent,
	idxArcsUniverse,
	idxStoriesUniverse,
	idxScenesUniverse,
	idxScenesStory,
	idxEntitiesUniverse,
	idxEntitiesKind,
	idxFactsUniverse,
	idxFactsScene,
	idxRelationsUniverse,
	idxRelationsPair,
	idxAxiomsUniverse,
}
