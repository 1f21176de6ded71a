package params

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndParseDefaults(t *testing.T) {
	cfg, err := LoadAndParse(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, Default, *cfg)
}

func TestLoadAndParseFlags(t *testing.T) {
	cfg, err := LoadAndParse([]string{
		"--hidden", "32", "--optimizer", "adam", "--iters=50",
		"--attention-sample", "no lo creo .", "--skip-kge", "--triples", "kg.tsv",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.HiddenSize)
	assert.Equal(t, "adam", cfg.Optimizer)
	assert.Equal(t, 50, cfg.NIters)
	assert.Equal(t, []string{"no lo creo ."}, cfg.AttentionSamples)
	assert.True(t, cfg.SkipKGE)
	assert.Equal(t, "kg.tsv", cfg.TriplesPath)
	assert.Equal(t, Default.MaxLength, cfg.MaxLength)
}

func TestLoadAndParseEnv(t *testing.T) {
	t.Setenv("TRANSLATOR_KGE_DIM", "8")
	t.Setenv("TRANSLATOR_NEO4J_URI", "neo4j://graph:7687")
	cfg, err := LoadAndParse(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.KGEDim)
	assert.Equal(t, "neo4j://graph:7687", cfg.Neo4jURI)
}

func TestLoadAndParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translator.toml")
	require.NoError(t, os.WriteFile(path, []byte("hidden_size = 64\nlearning_rate = 0.05\n"), 0o644))

	cfg, err := LoadAndParse([]string{"-c", path, "--lr", "0.2"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.HiddenSize)
	assert.Equal(t, 0.2, cfg.LearningRate)
}

func TestLoadAndParseHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := LoadAndParse([]string{"-h"}, &out)
	assert.True(t, errors.Is(err, ErrHelp))
	assert.Contains(t, out.String(), "--teacher-forcing")
}

func TestLoadAndParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"dropout", []string{"--dropout", "1"}},
		{"teacher forcing", []string{"--teacher-forcing", "1.5"}},
		{"optimizer", []string{"--optimizer", "rmsprop"}},
		{"hidden", []string{"--hidden", "0"}},
		{"unknown flag", []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAndParse(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}
}
