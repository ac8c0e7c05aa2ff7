package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.Index([]ToolDoc{
		{Name: "create_file", Description: "Create a new file with optional content", Category: "file", Params: []string{"filename", "content"}},
		{Name: "copy_file", Description: "Copy a file to a new location", Category: "file", Params: []string{"source", "destination"}},
		{Name: "compress_files", Description: "Pack files into a zstd compressed tar archive", Category: "file", Params: []string{"files", "archive_name"}},
		{Name: "create_folder", Description: "Create a directory", Category: "folder", Params: []string{"folder_name"}},
		{Name: "generate_install_commands", Description: "Generate installation commands for software", Category: "system", Params: []string{"software", "os"}},
	}))
	return c
}

func TestCatalogCount(t *testing.T) {
	c := newTestCatalog(t)

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)

	require.NoError(t, c.Remove("create_folder"))
	n, err = c.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
}

func TestCatalogSearch(t *testing.T) {
	c := newTestCatalog(t)

	results, err := c.Search("archive", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "compress_files", results[0].Name)
	assert.Equal(t, "file", results[0].Category)

	results, err = c.Search("installation", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "generate_install_commands", results[0].Name)
}

func TestCatalogSearchNoResults(t *testing.T) {
	c := newTestCatalog(t)

	results, err := c.Search("nonexistent_tool_xyz", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCatalogSearchCategory(t *testing.T) {
	c := newTestCatalog(t)

	results, err := c.SearchCategory("create", "folder", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "create_folder", results[0].Name)
}

func TestCatalogSimilar(t *testing.T) {
	c := newTestCatalog(t)

	results, err := c.Similar("copy_fil", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "copy_file", results[0].Name)

	results, err = c.Similar("totally_different", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCatalogAll(t *testing.T) {
	c := newTestCatalog(t)

	results, err := c.All(0)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, "compress_files", results[0].Name)
	assert.Equal(t, "generate_install_commands", results[4].Name)
}
