package static

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTree builds:
//
//	<tmp>/plugins/a/b.txt           "hello"
//	<tmp>/plugins/index.json
//	<tmp>/plugins/link-in.txt    -> a/b.txt
//	<tmp>/plugins/link-out.txt   -> <tmp>/secret.txt
//	<tmp>/plugins/dir-out        -> <tmp>/outside
//	<tmp>/plugins/sub            -> a/deep
//	<tmp>/plugins/secret.txt     "decoy"
//	<tmp>/plugins-evil/secret.txt
//	<tmp>/secret.txt
//	<tmp>/outside/secret.txt
func setupTree(t *testing.T) (tmp, root string) {
	t.Helper()

	tmp = t.TempDir()
	root = filepath.Join(tmp, "plugins")

	mustMkdir(t, filepath.Join(root, "a", "deep"))
	mustMkdir(t, filepath.Join(tmp, "outside"))
	mustMkdir(t, filepath.Join(tmp, "plugins-evil"))

	mustWrite(t, filepath.Join(root, "a", "b.txt"), "hello")
	mustWrite(t, filepath.Join(root, "index.json"), `{"plugins":[]}`)
	mustWrite(t, filepath.Join(root, "secret.txt"), "decoy")
	mustWrite(t, filepath.Join(tmp, "secret.txt"), "top secret")
	mustWrite(t, filepath.Join(tmp, "outside", "secret.txt"), "outside secret")
	mustWrite(t, filepath.Join(tmp, "plugins-evil", "secret.txt"), "sibling secret")

	mustSymlink(t, filepath.Join("a", "b.txt"), filepath.Join(root, "link-in.txt"))
	mustSymlink(t, filepath.Join(tmp, "secret.txt"), filepath.Join(root, "link-out.txt"))
	mustSymlink(t, filepath.Join(tmp, "outside"), filepath.Join(root, "dir-out"))
	mustSymlink(t, filepath.Join("a", "deep"), filepath.Join(root, "sub"))

	return tmp, root
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func mustSymlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

func canonical(t *testing.T, path string) string {
	t.Helper()
	p, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return p
}

func TestNewResolver(t *testing.T) {
	tmp, root := setupTree(t)

	r, err := NewResolver(root)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, root), r.Root())

	_, err = NewResolver(filepath.Join(tmp, "missing"))
	assert.Error(t, err)

	_, err = NewResolver(filepath.Join(tmp, "secret.txt"))
	assert.Error(t, err)

	_, err = NewResolver("  ")
	assert.Error(t, err)
}

func TestNewResolver_RootBehindSymlink(t *testing.T) {
	tmp, root := setupTree(t)
	alias := filepath.Join(tmp, "alias")
	mustSymlink(t, root, alias)

	r, err := NewResolver(alias)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, root), r.Root())

	got, err := r.Resolve("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, canonical(t, filepath.Join(root, "a", "b.txt")), got)
}

func TestResolver_Resolve(t *testing.T) {
	_, root := setupTree(t)
	r, err := NewResolver(root)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		wantErr  error
		wantFile string // relative to root, after symlink resolution
	}{
		{name: "simple file", path: "a/b.txt", wantFile: "a/b.txt"},
		{name: "leading slash", path: "/a/b.txt", wantFile: "a/b.txt"},
		{name: "dot segments inside root", path: "a/./../a/b.txt", wantFile: "a/b.txt"},
		{name: "index document", path: "index.json", wantFile: "index.json"},
		{name: "symlink inside root", path: "link-in.txt", wantFile: "a/b.txt"},
		{name: "empty path is the root directory", path: "", wantErr: ErrNotRegular},
		{name: "slash is the root directory", path: "/", wantErr: ErrNotRegular},
		{name: "directory", path: "a", wantErr: ErrNotRegular},
		{name: "directory with slash", path: "a/", wantErr: ErrNotRegular},
		{name: "missing file", path: "a/missing.txt", wantErr: ErrNotFound},
		{name: "absolute marker stays in root", path: "//etc/passwd", wantErr: ErrNotFound},
		{name: "parent traversal", path: "../secret.txt", wantErr: ErrPathTraversal},
		{name: "nested traversal", path: "a/../../etc/passwd", wantErr: ErrPathTraversal},
		{name: "traversal to sibling with shared prefix", path: "../plugins-evil/secret.txt", wantErr: ErrPathTraversal},
		{name: "bare dot dot", path: "..", wantErr: ErrPathTraversal},
		{name: "symlinked file escapes", path: "link-out.txt", wantErr: ErrSymlinkEscape},
		{name: "symlinked directory escapes", path: "dir-out/secret.txt", wantErr: ErrSymlinkEscape},
		{name: "dot dot applied after escaping symlink", path: "dir-out/../secret.txt", wantErr: ErrSymlinkEscape},
		{name: "dot dot applied after in-root symlink", path: "sub/../../a/b.txt", wantFile: "a/b.txt"},
		{name: "dot dot after in-root symlink to missing file", path: "sub/../missing.txt", wantErr: ErrNotFound},
		{name: "nul byte", path: "a/b.txt\x00.png", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.path)

			if tt.wantErr != nil {
				require.Error(t, err)
				var pathErr *PathSecurityError
				require.True(t, errors.As(err, &pathErr), "expected PathSecurityError, got %T", err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, canonical(t, filepath.Join(root, filepath.FromSlash(tt.wantFile))), got)
		})
	}
}

func TestResolver_FileUsedAsDirectory(t *testing.T) {
	_, root := setupTree(t)
	r, err := NewResolver(root)
	require.NoError(t, err)

	_, err = r.Resolve("a/b.txt/c")
	require.Error(t, err)
	assert.False(t, IsContainmentViolation(err))
}

func TestDecodePath(t *testing.T) {
	got, err := DecodePath("/%2e%2e%2fsecret.txt")
	require.NoError(t, err)
	assert.Equal(t, "/../secret.txt", got)

	got, err = DecodePath("/a%2Fb.txt")
	require.NoError(t, err)
	assert.Equal(t, "/a/b.txt", got)

	// Decoding happens exactly once.
	got, err = DecodePath("/%252e%252e")
	require.NoError(t, err)
	assert.Equal(t, "/%2e%2e", got)

	_, err = DecodePath("/%zz")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestResolver_EncodedTraversalIsCaughtAfterDecode(t *testing.T) {
	_, root := setupTree(t)
	r, err := NewResolver(root)
	require.NoError(t, err)

	decoded, err := DecodePath("/a/%2e%2e/%2e%2e/secret.txt")
	require.NoError(t, err)

	_, err = r.Resolve(decoded)
	assert.True(t, IsPathTraversal(err), "got %v", err)
	assert.True(t, IsContainmentViolation(err))
}

func TestIsWithinBase(t *testing.T) {
	sep := string(os.PathSeparator)
	base := sep + filepath.Join("srv", "plugins")

	assert.True(t, isWithinBase(base, base))
	assert.True(t, isWithinBase(filepath.Join(base, "a"), base))
	assert.False(t, isWithinBase(base+"-evil", base))
	assert.False(t, isWithinBase(sep+"srv", base))
	assert.True(t, isWithinBase(sep+"etc", sep))
}
