package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/source"
)

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	data := []byte(`
api_url: https://example.test/api/usage
site_script: scrape_site.js
status_script: scrape_status.js
series:
  - name: main
    primary: true
    token_env: MAIN_TOKEN
    token_fallback: sk-static
  - name: spare
    token_env: SPARE_TOKEN
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	defs, err := source.LoadDefinitions(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/api/usage", defs.APIURL)
	assert.Equal(t, []string{"main", "spare"}, defs.Names())
	assert.Equal(t, "main", defs.Primary().Name)

	spare, ok := defs.Lookup("spare")
	require.True(t, ok)
	assert.Equal(t, "SPARE_TOKEN", spare.TokenEnv)

	_, ok = defs.Lookup("ghost")
	assert.False(t, ok)
}

func TestLoadDefinitions_NoSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`api_url: https://x.test`), 0o644))

	_, err := source.LoadDefinitions(path)
	assert.Error(t, err)
}

func TestLoadDefinitions_PrimaryDefaultsToFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	data := []byte(`
series:
  - name: first
  - name: second
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	defs, err := source.LoadDefinitions(path)
	require.NoError(t, err)
	assert.Equal(t, "first", defs.Primary().Name)
}
