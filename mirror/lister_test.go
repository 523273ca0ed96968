package mirror_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vaultmirror/go-vaultmirror/apierror"
	"github.com/vaultmirror/go-vaultmirror/mirror"
	"github.com/vaultmirror/go-vaultmirror/vault"
)

func TestListingCycleTerminates(t *testing.T) {
	src := newMockStore(map[string]vault.Document{
		"notes/a.md": {Content: "a", Mtime: 1},
	})
	// The notes directory claims to contain its own parent, so a naive
	// traversal would descend forever.
	src.extraDirs["notes"] = []vault.DirEntry{
		{Name: "..", Dir: true},
	}

	m, err := mirror.New(src)
	require.NoError(t, err)
	require.NoError(t, m.Build(context.Background()))

	require.Equal(t, 1, m.Len())
	_, ok := m.Entry("notes/a.md")
	require.True(t, ok)
	// Root and notes, each listed exactly once.
	require.Equal(t, int32(2), src.callList.Load())
}

func TestListingSelfReferenceTerminates(t *testing.T) {
	src := newMockStore(map[string]vault.Document{
		"notes/a.md": {Content: "a", Mtime: 1},
	})
	src.extraDirs["notes"] = []vault.DirEntry{
		{Name: ".", Dir: true},
	}

	m, err := mirror.New(src)
	require.NoError(t, err)
	require.NoError(t, m.Build(context.Background()))
	require.Equal(t, 1, m.Len())
	require.Equal(t, int32(2), src.callList.Load())
}

func TestListingDuplicateDirectory(t *testing.T) {
	src := newMockStore(map[string]vault.Document{
		"notes/a.md": {Content: "a", Mtime: 1},
	})
	// Root reports the notes directory twice.
	src.extraDirs[""] = []vault.DirEntry{
		{Name: "notes", Dir: true},
	}

	m, err := mirror.New(src)
	require.NoError(t, err)
	require.NoError(t, m.Build(context.Background()))
	require.Equal(t, 1, m.Len())
	require.Equal(t, int32(2), src.callList.Load())
}

func TestListingDirectoryGoneMidScan(t *testing.T) {
	src := newMockStore(map[string]vault.Document{
		"a.md": {Content: "a", Mtime: 1},
	})
	src.extraDirs[""] = []vault.DirEntry{
		{Name: "ghost", Dir: true},
	}
	src.listErr["ghost"] = apierror.New(nil, http.StatusNotFound)

	m, err := mirror.New(src)
	require.NoError(t, err)

	// A deleted subdirectory is an empty branch, not a failure.
	require.NoError(t, m.Build(context.Background()))
	require.True(t, m.Ready())
	require.Equal(t, 1, m.Len())
}

func TestListingBranchFailureIsolated(t *testing.T) {
	src := newMockStore(map[string]vault.Document{
		"a.md":       {Content: "a", Mtime: 1},
		"bad/b.md":   {Content: "b", Mtime: 1},
		"good/c.md":  {Content: "c", Mtime: 1},
		"good/d2.md": {Content: "d", Mtime: 1},
	})
	src.listErr["bad"] = apierror.New(nil, http.StatusInternalServerError)

	m, err := mirror.New(src)
	require.NoError(t, err)

	// The failing branch contributes no paths but the rest of the tree is
	// still enumerated.
	require.NoError(t, m.Build(context.Background()))
	require.True(t, m.Ready())

	entries := m.Entries()
	require.Len(t, entries, 3)
	require.Contains(t, entries, "a.md")
	require.Contains(t, entries, "good/c.md")
	require.NotContains(t, entries, "bad/b.md")
}
