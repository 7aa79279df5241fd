package files

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
}

func TestDiscovery_FindInputFiles(t *testing.T) {
	base := t.TempDir()
	touch(t, base, "n2o.txt")
	touch(t, base, "CH4.TXT")
	touch(t, base, "co2.txt")
	touch(t, base, "notes.md")
	require.NoError(t, os.Mkdir(filepath.Join(base, "dir.txt"), 0755))

	d := NewDiscovery(base, ".txt")
	files, err := d.FindInputFiles("")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		assert.Equal(t, filepath.Join(base, f.Name), f.Path)
		assert.EqualValues(t, 1, f.Size)
	}
	assert.Equal(t, []string{"CH4.TXT", "co2.txt", "n2o.txt"}, names)
}

func TestDiscovery_FindInputFilesMissingDir(t *testing.T) {
	d := NewDiscovery(t.TempDir(), ".txt")
	_, err := d.FindInputFiles("missing")
	assert.Error(t, err)
}

func TestDiscovery_Resolve(t *testing.T) {
	base := t.TempDir()
	d := NewDiscovery(base, ".txt")

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain name", input: "co2.txt"},
		{name: "empty", input: "", wantErr: true},
		{name: "dot dot", input: "..", wantErr: true},
		{name: "traversal", input: "../etc/passwd", wantErr: true},
		{name: "nested", input: "sub/co2.txt", wantErr: true},
		{name: "backslash", input: `sub\co2.txt`, wantErr: true},
		{name: "absolute", input: "/etc/passwd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Resolve(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidName))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(base, tt.input), got)
		})
	}
}

func TestDiscovery_Matches(t *testing.T) {
	d := NewDiscovery("", ".txt")
	assert.True(t, d.Matches("a.txt"))
	assert.True(t, d.Matches("A.TXT"))
	assert.False(t, d.Matches("a.txt.json"))
	assert.False(t, d.Matches("a.csv"))
}
