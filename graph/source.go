// Package graph fetches (head, relation, tail) triples for the knowledge
// embedding pipeline, either from Neo4j or from a tab separated file.
package graph

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Triple is one edge of the knowledge graph.
type Triple struct {
	Head     string
	Relation string
	Tail     string
}

// Source yields every triple of the graph.
type Source interface {
	Triples(ctx context.Context) ([]Triple, error)
}

// FileSource reads head<TAB>relation<TAB>tail lines.
type FileSource struct {
	Path string
}

func (s FileSource) Triples(ctx context.Context) ([]Triple, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	defer f.Close()
	return ReadTriples(ctx, f)
}

// ReadTriples parses tab separated triples. Blank lines and lines starting
// with '#' are skipped.
func ReadTriples(ctx context.Context, r io.Reader) ([]Triple, error) {
	var out []Triple
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) != 3 {
			return nil, errors.Errorf("line %d: want 3 tab separated fields, got %d", line, len(parts))
		}
		out = append(out, Triple{Head: parts[0], Relation: parts[1], Tail: parts[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read triples")
	}
	return out, nil
}
