package batch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/match"
	"github.com/veridose/boxscan/internal/pipeline"
)

func TestDiscoverImageFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	for _, name := range []string{"a.png", "b.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.png"), []byte("x"), 0o600))

	flat, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Len(t, flat, 2) // txt excluded, nested skipped

	recursive, err := discoverImageFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.Len(t, recursive, 3)

	onlyPNG, err := discoverImageFiles([]string{dir}, true, []string{"*.png"}, nil)
	require.NoError(t, err)
	assert.Len(t, onlyPNG, 2)

	excluded, err := discoverImageFiles([]string{dir}, true, nil, []string{"a.*"})
	require.NoError(t, err)
	assert.Len(t, excluded, 2)
}

func TestDiscoverSortedOutput(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z.png", "a.png", "m.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.True(t, strings.HasSuffix(files[0], "a.png"))
	assert.True(t, strings.HasSuffix(files[2], "z.png"))
}

func sampleFiles() []FileResult {
	c := match.NewCandidate(catalog.Entry{ID: "drug-1", Name: "Ibuprofen"}, 100, match.AlgorithmExact)
	return []FileResult{
		{
			Path: "box1.png",
			Result: &pipeline.MultiDrugResult{
				Drugs: []pipeline.DrugDetection{{
					DrugID:     "drug-1",
					Name:       "Ibuprofen",
					Confidence: c.Confidence,
					Action:     decision.ActionAutoSelect,
				}},
			},
		},
		{Path: "box2.png", Error: "unreadable"},
	}
}

func TestFormatCSV(t *testing.T) {
	out, err := formatResults(sampleFiles(), "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "drug_name")
	assert.Contains(t, lines[1], "Ibuprofen")
	assert.Contains(t, lines[1], "AUTO_SELECT")
	assert.Contains(t, lines[2], "unreadable")
}

func TestFormatJSON(t *testing.T) {
	out, err := formatResults(sampleFiles(), "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Ibuprofen"`)
	assert.Contains(t, out, `"unreadable"`)
}

func TestFormatText(t *testing.T) {
	out, err := formatResults(sampleFiles(), "text")
	require.NoError(t, err)
	assert.Contains(t, out, "box1.png: Ibuprofen")
	assert.Contains(t, out, "box2.png: error: unreadable")
}

func TestFormatUnsupported(t *testing.T) {
	_, err := formatResults(nil, "xml")
	assert.Error(t, err)
}
