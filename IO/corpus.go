package IO

import (
	"bufio"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AttributionMarker starts the licence tag appended to corpus lines.
const AttributionMarker = "\tCC-BY"

// Pair is one normalized training example.
type Pair struct {
	Source string
	Target string
}

// ReadLangs loads the corpus file at path. See ParsePairs.
func ReadLangs(path, lang1, lang2 string, reverse bool) (*Lang, *Lang, []Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "can't open corpus %s", path)
	}
	defer f.Close()
	in, out, pairs, err := ParsePairs(f, lang1, lang2, reverse)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "can't read corpus %s", path)
	}
	return in, out, pairs, nil
}

// ParsePairs splits lang1<TAB>lang2 lines into normalized pairs and creates
// the two (still empty) Langs. With reverse the pairs become lang2 -> lang1.
// Lines are not validated: a line without a tab yields an empty target.
func ParsePairs(r io.Reader, lang1, lang2 string, reverse bool) (*Lang, *Lang, []Pair, error) {
	log.Info().Msg("Reading lines...")

	var pairs []Pair
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, AttributionMarker); i >= 0 {
			line = line[:i]
		}
		parts := strings.Split(line, "\t")
		p := Pair{Source: NormalizeString(parts[0])}
		if len(parts) > 1 {
			p.Target = NormalizeString(parts[1])
		}
		if reverse {
			p.Source, p.Target = p.Target, p.Source
		}
		pairs = append(pairs, p)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, nil, err
	}

	if reverse {
		return NewLang(lang2), NewLang(lang1), pairs, nil
	}
	return NewLang(lang1), NewLang(lang2), pairs, nil
}

// FilterPair keeps pairs whose both sides have fewer than maxLength tokens.
func FilterPair(p Pair, maxLength int) bool {
	return TokenCount(p.Source) < maxLength && TokenCount(p.Target) < maxLength
}

func FilterPairs(pairs []Pair, maxLength int) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if FilterPair(p, maxLength) {
			out = append(out, p)
		}
	}
	return out
}

// Corpus is the prepared training material.
type Corpus struct {
	Input  *Lang
	Output *Lang
	Pairs  []Pair
}

// RandomPair picks one pair uniformly.
func (c *Corpus) RandomPair(rng *rand.Rand) Pair {
	return c.Pairs[rng.IntN(len(c.Pairs))]
}

// PrepareData reads, filters and indexes the corpus.
func PrepareData(path, lang1, lang2 string, reverse bool, maxLength int) (*Corpus, error) {
	in, out, pairs, err := ReadLangs(path, lang1, lang2, reverse)
	if err != nil {
		return nil, err
	}
	return BuildCorpus(in, out, pairs, maxLength)
}

// BuildCorpus filters pairs and feeds the survivors to both Langs.
func BuildCorpus(in, out *Lang, pairs []Pair, maxLength int) (*Corpus, error) {
	log.Info().Int("pairs", len(pairs)).Msg("Read sentence pairs")
	pairs = FilterPairs(pairs, maxLength)
	log.Info().Int("pairs", len(pairs)).Msg("Trimmed sentence pairs")
	if len(pairs) == 0 {
		return nil, errors.Errorf("no sentence pairs shorter than %d tokens", maxLength)
	}

	log.Info().Msg("Counting words...")
	for _, p := range pairs {
		in.AddSentence(p.Source)
		out.AddSentence(p.Target)
	}
	log.Info().
		Str("input", in.Name).Int("input_words", in.Len()).
		Str("output", out.Name).Int("output_words", out.Len()).
		Msg("Counted words")
	return &Corpus{Input: in, Output: out, Pairs: pairs}, nil
}
