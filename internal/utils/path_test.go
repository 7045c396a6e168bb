package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     string
		want      string
		wantError bool
	}{
		{name: "empty path", input: "", wantError: true},
		{name: "absolute path", input: "/tmp/test/../x", want: filepath.Clean("/tmp/x")},
		{name: "home path", input: "~/incoming", want: filepath.Join(home, "incoming")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestResolvePath_Relative(t *testing.T) {
	result, err := ResolvePath("./test")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(result))
}

func TestCanonicalPath_FollowsSymlinks(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	target := filepath.Join(tmp, "target")
	link := filepath.Join(tmp, "link")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.Symlink(target, link))

	got, err := CanonicalPath(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	missing := filepath.Join(tmp, "missing")
	got, err = CanonicalPath(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)
}

func TestEnsureParentAndDirExists(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "a", "b", "c.txt")

	assert.False(t, DirExists(filepath.Dir(file)))
	require.NoError(t, EnsureParent(file))
	assert.True(t, DirExists(filepath.Dir(file)))

	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.False(t, DirExists(file))
}
