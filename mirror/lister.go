package mirror

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/gammazero/channelqueue"
	"github.com/hashicorp/go-multierror"
	"github.com/vaultmirror/go-vaultmirror/apierror"
)

// listAll enumerates every document path under the store root. Traversal is
// breadth-first over an explicit worklist of pending directories, with a
// visited set of normalized directory paths. A directory that shows up a
// second time, whether from a structural cycle or a duplicate listing, is
// skipped, so traversal terminates even on malformed remote listings.
//
// Only a failure to list the root aborts the enumeration. A subdirectory
// reported not-found is treated as empty, since directories can be deleted
// mid-scan. Any other per-directory failure drops that branch; the branch
// errors are collected and logged once at the end.
func (m *Mirror) listAll(ctx context.Context) (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	visited := map[string]struct{}{
		"": {},
	}

	worklist := channelqueue.New[string](-1)
	in := worklist.In()
	defer close(in)

	in <- ""
	pending := 1

	var branchErrs error

	for pending != 0 {
		dir := <-worklist.Out()
		pending--

		entries, err := m.src.ListDirectory(ctx, dir)
		if err != nil {
			if dir == "" {
				return nil, fmt.Errorf("cannot list store root: %w", err)
			}
			if apierror.IsNotFound(err) {
				log.Debugw("Directory gone during enumeration", "dir", dir)
				continue
			}
			log.Errorw("Cannot list directory, skipping branch", "err", err, "dir", dir)
			branchErrs = multierror.Append(branchErrs, fmt.Errorf("list %q: %w", dir, err))
			continue
		}

		for _, ent := range entries {
			p := normalizePath(dir, ent.Name)
			if !ent.Dir {
				paths[p] = struct{}{}
				continue
			}
			if _, ok := visited[p]; ok {
				log.Warnw("Directory listed more than once, skipping repeat", "dir", p)
				continue
			}
			visited[p] = struct{}{}
			in <- p
			pending++
		}
	}

	if branchErrs != nil {
		log.Warnw("Enumeration incomplete, some branches skipped", "err", branchErrs)
	}
	return paths, nil
}

// normalizePath resolves a listing entry name against its directory into a
// store-relative path with no leading or trailing slash. Entry names
// containing "." or ".." collapse, so a listing that points back up the tree
// maps onto a path the visited set already knows.
func normalizePath(dir, name string) string {
	p := path.Join(dir, name)
	p = strings.Trim(p, "/")
	if p == "." {
		return ""
	}
	return p
}
