package cfgfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string   `json:"name" yaml:"name"`
	Items []string `json:"items" yaml:"items"`
}

func TestDecodeByExtension(t *testing.T) {
	var y doc
	require.NoError(t, Decode([]byte("name: a\nitems: [x, y]\n"), ".YML", "test", &y))
	assert.Equal(t, doc{Name: "a", Items: []string{"x", "y"}}, y)

	var j doc
	require.NoError(t, Decode([]byte(`{"name":"b","items":["z"]}`), ".json", "test", &j))
	assert.Equal(t, doc{Name: "b", Items: []string{"z"}}, j)

	var noExt doc
	require.NoError(t, Decode([]byte(`{"name":"c"}`), "", "test", &noExt))
	assert.Equal(t, "c", noExt.Name)
}

func TestDecodeErrors(t *testing.T) {
	var d doc
	err := Decode([]byte("name = a"), ".toml", "providers", &d)
	assert.ErrorContains(t, err, "providers file format")

	err = Decode([]byte("{"), ".json", "publishers", &d)
	assert.ErrorContains(t, err, "decode json publishers")

	err = Decode([]byte("items: ["), ".yaml", "publishers", &d)
	assert.ErrorContains(t, err, "decode yaml publishers")
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("CFGFILE_NAME", "expanded")
	path := filepath.Join(t.TempDir(), "side.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: ${CFGFILE_NAME}\n"), 0o600))

	var d doc
	require.NoError(t, Load(path, "test", &d))
	assert.Equal(t, "expanded", d.Name)

	assert.ErrorContains(t, Load(" ", "test", &d), "test file path is empty")
	assert.ErrorContains(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), "test", &d), "open test file")
}

func TestHeaders(t *testing.T) {
	assert.Nil(t, Headers(nil))
	assert.Nil(t, Headers(map[string]string{" ": "x", "Empty": "  "}))
	assert.Equal(t,
		map[string]string{"Authorization": "Bearer t", "Accept": "text/xml"},
		Headers(map[string]string{" Authorization ": " Bearer t", "Accept": "text/xml", "X-Blank": ""}),
	)
}
