package filesbackend

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/internal/refs"
)

// looseNamesUnder lists every loose ref file under prefix, lexically
// sorted; prefix is interpreted relative to the refs root.
func (b *Backend) looseNamesUnder(prefix string) ([]string, error) {
	base := b.loosePath(prefix)
	var names []string

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if isNotExistWalkErr(err) {
				return nil
			}
			return err
		}
		rel, rerr := filepath.Rel(b.root, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)

		// logs/ holds reflog files, not refs; packed-refs is the
		// packed-ref catalog, read separately. Neither is a refname
		// candidate, and logs/ can be large, so skip the whole subtree.
		if rel == "logs" && d.IsDir() {
			return filepath.SkipDir
		}
		if rel == "packed-refs" {
			return nil
		}
		if d.IsDir() || strings.HasSuffix(path, ".lock") {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func isNotExistWalkErr(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") ||
		strings.Contains(err.Error(), "cannot find the path")
}

// DoForEachRef merge-sorts loose refs (directory traversal) with packed
// refs (already sorted); loose shadows packed. Broken loose refs are
// skipped unless IncludeBroken is set.
func (b *Backend) DoForEachRef(ctx context.Context, prefix string, trim int, flags refs.ResolveFlags, fn func(refs.RefEntry) error) error {
	loose, err := b.looseNamesUnder(prefix)
	if err != nil {
		return err
	}
	packed, err := b.getPackedRefs()
	if err != nil {
		return err
	}

	looseSet := make(map[string]bool, len(loose))
	for _, n := range loose {
		looseSet[n] = true
	}

	merged := make([]string, 0, len(loose)+len(packed.Entries))
	merged = append(merged, loose...)
	for _, e := range packed.Entries {
		if !looseSet[e.Refname] && strings.HasPrefix(e.Refname, prefix) {
			merged = append(merged, e.Refname)
		}
	}
	sort.Strings(merged)

	for _, name := range merged {
		raw, err := b.ReadRawRef(ctx, name)
		if err != nil {
			continue
		}
		if raw.Flags&refs.IsBroken != 0 && flags&refs.IncludeBroken == 0 {
			logger.WarnCtx(ctx, "ignoring broken ref", logger.Refname(name))
			continue
		}

		trimmed := name
		if trim > 0 && trim <= len(name) {
			trimmed = name[trim:]
		}
		if err := fn(refs.RefEntry{Refname: trimmed, OID: raw.OID, Flags: raw.Flags}); err != nil {
			return err
		}
	}
	return nil
}
