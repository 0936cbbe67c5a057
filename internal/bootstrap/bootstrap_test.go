package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retractor-go/internal/config"
	"retractor-go/internal/extract"
	"retractor-go/internal/ner"
)

func TestNewNERModel(t *testing.T) {
	m, err := NewNERModel(config.NERConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, ner.NopModel{}, m)

	m, err = NewNERModel(config.Default().NER, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, ner.NopModel{}, m)

	cfg := config.Default().NER
	cfg.ServerURL = "http://127.0.0.1:1/ner"
	cfg.APIKey = "k"
	m, err = NewNERModel(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ner.HTTPModel{}, m)
}

func TestNewParser(t *testing.T) {
	dir := t.TempDir()
	skills := filepath.Join(dir, "skills.csv")
	require.NoError(t, os.WriteFile(skills, []byte("python,sql\n"), 0o644))

	cfg := config.Default()
	cfg.Parser.SkillsFile = skills

	p, err := NewParser(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	res, err := p.ParseText(context.Background(), "Skills\nPython and SQL")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Python", "Sql"}, res.Skills)
}

func TestNewParserMissingVocabulary(t *testing.T) {
	cfg := config.Default()
	cfg.Parser.SkillsFile = filepath.Join(t.TempDir(), "missing.csv")

	_, err := NewParser(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, extract.ErrVocabularyUnavailable)
}
