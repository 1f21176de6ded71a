package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"
)

// TranslationQuery returns one row per English->Spanish translation edge.
const TranslationQuery = `MATCH (e:English)-[r:TRANSLATES_TO]->(s:Spanish)
RETURN s.word AS spanish_word, e.word AS english_word, TYPE(r) AS relationship`

// Neo4jSource reads translation edges from a Neo4j server. Each row becomes
// (spanish_word, relationship, english_word).
type Neo4jSource struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jSource(ctx context.Context, uri, user, password, database string) (*Neo4jSource, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, errors.Wrapf(err, "create neo4j driver for %s", uri)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Wrapf(err, "connect to %s", uri)
	}
	return &Neo4jSource{driver: driver, database: database}, nil
}

func (s *Neo4jSource) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jSource) Triples(ctx context.Context) ([]Triple, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}
	res, err := neo4j.ExecuteQuery(ctx, s.driver, TranslationQuery, nil, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "query translations")
	}
	return recordsToTriples(res.Records)
}

func recordsToTriples(records []*neo4j.Record) ([]Triple, error) {
	out := make([]Triple, 0, len(records))
	for i, rec := range records {
		spanish, err := stringField(rec, "spanish_word")
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		english, err := stringField(rec, "english_word")
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		rel, err := stringField(rec, "relationship")
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out = append(out, Triple{Head: spanish, Relation: rel, Tail: english})
	}
	return out, nil
}

func stringField(rec *neo4j.Record, key string) (string, error) {
	v, isNil, err := neo4j.GetRecordValue[string](rec, key)
	if err != nil {
		return "", errors.Wrapf(err, "field %s", key)
	}
	if isNil {
		return "", errors.Errorf("field %s is null", key)
	}
	return v, nil
}
