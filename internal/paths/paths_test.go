package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverLayout(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "app")
	tmp := t.TempDir()
	r, err := New(root, tmp)
	require.NoError(t, err)

	assert.Equal(t, root, r.AppDataRoot())
	assert.Equal(t, filepath.Join(root, "models"), r.ModelsDir())
	assert.Equal(t, filepath.Join(root, "binaries"), r.BinariesDir())
	assert.Equal(t, filepath.Join(root, "database.db"), r.DatabasePath())
	assert.Equal(t, filepath.Join(tmp, "palm-ai-pack-download.partial"), r.PartialPath())
	assert.Equal(t, filepath.Join(tmp, "palm-ai-pack-download.zip"), r.ArchivePath())

	// Resolution never creates directories.
	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestResolverDefaults(t *testing.T) {
	t.Parallel()

	r, err := New("", "")
	require.NoError(t, err)
	assert.Equal(t, ProductName, filepath.Base(r.AppDataRoot()))
	assert.Equal(t, filepath.Clean(os.TempDir()), r.TempDir())
}

func TestLocalDataDir(t *testing.T) {
	t.Parallel()

	home := filepath.FromSlash("/home/u")
	env := func(values map[string]string) func(string) string {
		return func(k string) string { return values[k] }
	}
	xdg := filepath.Join(string(filepath.Separator)+"data", "xdg")

	tests := []struct {
		name string
		goos string
		env  map[string]string
		want string
	}{
		{"windows env", "windows", map[string]string{"LOCALAPPDATA": `C:\Users\u\AppData\Local`}, `C:\Users\u\AppData\Local`},
		{"windows fallback", "windows", nil, filepath.Join(home, "AppData", "Local")},
		{"darwin", "darwin", nil, filepath.Join(home, "Library", "Application Support")},
		{"linux xdg", "linux", map[string]string{"XDG_DATA_HOME": xdg}, xdg},
		{"linux relative xdg ignored", "linux", map[string]string{"XDG_DATA_HOME": "rel"}, filepath.Join(home, ".local", "share")},
		{"linux default", "linux", nil, filepath.Join(home, ".local", "share")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, localDataDir(tt.goos, env(tt.env), home))
		})
	}
}
