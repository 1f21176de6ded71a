// Package kge learns TransE embeddings for the entities and relations of a
// small knowledge graph and answers nearest-entity queries.
package kge

import "github.com/manningwu07/translator/graph"

// IndexedTriple is a triple mapped to dense ids.
type IndexedTriple struct {
	Head, Relation, Tail int
}

// Index assigns dense ids in first-seen order. Heads and tails share the
// entity table.
type Index struct {
	entities  []string
	entityID  map[string]int
	relations []string
	relID     map[string]int
	Triples   []IndexedTriple
}

func NewIndex(triples []graph.Triple) *Index {
	ix := &Index{entityID: map[string]int{}, relID: map[string]int{}}
	for _, t := range triples {
		ix.Triples = append(ix.Triples, IndexedTriple{
			Head:     ix.addEntity(t.Head),
			Relation: ix.addRelation(t.Relation),
			Tail:     ix.addEntity(t.Tail),
		})
	}
	return ix
}

func (ix *Index) addEntity(e string) int {
	if id, ok := ix.entityID[e]; ok {
		return id
	}
	ix.entityID[e] = len(ix.entities)
	ix.entities = append(ix.entities, e)
	return len(ix.entities) - 1
}

func (ix *Index) addRelation(r string) int {
	if id, ok := ix.relID[r]; ok {
		return id
	}
	ix.relID[r] = len(ix.relations)
	ix.relations = append(ix.relations, r)
	return len(ix.relations) - 1
}

func (ix *Index) EntityID(e string) (int, bool) {
	id, ok := ix.entityID[e]
	return id, ok
}

func (ix *Index) Entity(id int) (string, bool) {
	if id < 0 || id >= len(ix.entities) {
		return "", false
	}
	return ix.entities[id], true
}

func (ix *Index) RelationID(r string) (int, bool) {
	id, ok := ix.relID[r]
	return id, ok
}

func (ix *Index) NumEntities() int  { return len(ix.entities) }
func (ix *Index) NumRelations() int { return len(ix.relations) }

// Entities returns entity names in id order.
func (ix *Index) Entities() []string {
	return append([]string(nil), ix.entities...)
}
