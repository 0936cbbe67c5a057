package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkills(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skills.csv")
	require.NoError(t, os.WriteFile(path, []byte("python\nsql\n"), 0o644))
	return path
}

func TestRunText(t *testing.T) {
	t.Setenv("RETRACTOR_NER_URL", "")
	var stdout, stderr bytes.Buffer
	code := run([]string{"--skills", writeSkills(t), "--compact", "--log-level", "error",
		"--text", "John Smith\njohn@example.com\nSkills\nPython"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "john@example.com", out["email"])
	assert.Equal(t, []any{"Python"}, out["skills"])
	assert.Contains(t, out, "no_of_pages")
}

func TestRunMultipleInputs(t *testing.T) {
	t.Setenv("RETRACTOR_NER_URL", "")
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Experience\nJan 2020 to Mar 2020"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"--skills", writeSkills(t), "--log-level", "error", "-w", "2", resume, "plain text resume"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var out []fileResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, resume, out[0].Input)
	require.NotNil(t, out[0].Resume)
	assert.Equal(t, 0.17, out[0].Resume.TotalExperience)
	assert.Equal(t, "plain text resume", out[1].Input)
	assert.Empty(t, out[1].Error)
}

func TestRunMissingVocabulary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--skills", filepath.Join(t.TempDir(), "none.csv"), "--text", "x"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "用法")
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
}

func TestRunInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--init-config", path}, &stdout, &stderr))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
