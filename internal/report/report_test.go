package report

import (
	"bytes"
	"testing"

	"github.com/phillip-england/locsetup/internal/locations"
	"github.com/phillip-england/locsetup/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ashwoodSnapshot() tasks.Snapshot {
	features := tasks.NewFeatureSet(tasks.FeaturePosts)
	task := tasks.BuildTask(locations.Row{
		"Location Name":         "Ashwood High School",
		"Address 1":             "940 Gnatty Creek Road",
		"City/Town":             "North Franklin",
		"Primary Logo":          "https://x/logo.png",
		"Primary Logo Alt-Text": "moar kitteh",
	}, features)
	return tasks.Snapshot{
		FileName:       "schools.csv",
		Features:       features,
		MissingHeaders: []string{"Motto"},
		Tasks:          []tasks.Task{task},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(ashwoodSnapshot().Tasks)
	want := [][]string{
		{"Ashwood High School", "Location Setup", "location", "Location Name", "Ashwood High School"},
		{"Ashwood High School", "Location Setup", "location", "Address 1", "940 Gnatty Creek Road"},
		{"Ashwood High School", "Location Setup", "location", "City/Town", "North Franklin"},
		{"Ashwood High School", "Location Primary Logo", "locationPrimaryLogo", "Primary Logo", "https://x/logo.png"},
		{"Ashwood High School", "Location Primary Logo", "locationPrimaryLogo", "Primary Logo Alt-Text", "moar kitteh"},
		{"Ashwood High School", "Setup Posts", "setupPosts", "", ""},
	}
	assert.Equal(t, want, rows)
}

func TestRowsEmpty(t *testing.T) {
	assert.Empty(t, Rows(nil))
}

func TestRenderTree(t *testing.T) {
	out := RenderTree(ashwoodSnapshot())

	for _, want := range []string{
		"Tasks (1) from schools.csv [Posts]",
		"Ashwood High School",
		"Location Setup",
		"[location]",
		"Address 1: 940 Gnatty Creek Road",
		"Primary Logo Alt-Text: moar kitteh",
		"Setup Posts",
		"[setupPosts]",
		"missing headers: Motto",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Setup Forms")
}

func TestRenderTreeEmpty(t *testing.T) {
	out := RenderTree(tasks.Snapshot{})
	assert.Contains(t, out, "Tasks (0)")
	assert.NotContains(t, out, "missing headers")
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, ashwoodSnapshot()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{TasksSheet, MissingSheet}, f.GetSheetList())

	rows, err := f.GetRows(TasksSheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, WorkbookHeader, rows[0])
	assert.Equal(t, []string{"Ashwood High School", "Location Setup", "location", "City/Town", "North Franklin"}, rows[3])
	assert.Equal(t, []string{"Ashwood High School", "Setup Posts", "setupPosts"}, rows[6])

	missing, err := f.GetRows(MissingSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Header"}, {"Motto"}}, missing)
}

func TestWriteWorkbookWithoutMissingHeaders(t *testing.T) {
	snap := ashwoodSnapshot()
	snap.MissingHeaders = nil

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, snap))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{TasksSheet}, f.GetSheetList())
}
