package dataset

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"thooimai-go/internal/logger"
)

func writeSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "localities.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadLocalities(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Zone", "Area Name", "Ward No"},
		{"North", "Arapalayam", "12"},
		{"North", "Arapalayam", "Ward 13"},
		{"South", "Anna Nagar", ""},
		{"South", "", "40"},
		{"East", "Arapalayam", "12"},
	})

	locs, err := LoadLocalities(path, nil)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, Locality{Area: "Arapalayam", Wards: []string{"Ward 12", "Ward 13"}}, locs[0])
	assert.Equal(t, Locality{Area: "Anna Nagar"}, locs[1])
}

func TestLoadLocalitiesLogsThroughGivenLogger(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Area", "Ward"},
		{"Simmakkal", "5"},
	})
	var buf bytes.Buffer
	_, err := LoadLocalities(path, logger.NewWithOptions("production", "info", &buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "locality gazetteer loaded")
	assert.Contains(t, buf.String(), `"component":"dataset.localities"`)
}

func TestLoadLocalitiesRequiresAreaColumn(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Zone", "Ward"},
		{"North", "3"},
	})
	_, err := LoadLocalities(path, nil)
	assert.Error(t, err)
}

func TestLoadLocalitiesMissingFile(t *testing.T) {
	_, err := LoadLocalities(filepath.Join(t.TempDir(), "nope.xlsx"), nil)
	assert.Error(t, err)
}

func TestNormalizeWard(t *testing.T) {
	assert.Equal(t, "Ward 7", normalizeWard(" 07 "))
	assert.Equal(t, "Ward 12", normalizeWard("Ward 12"))
	assert.Equal(t, "", normalizeWard(" "))
}
