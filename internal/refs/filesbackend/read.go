package filesbackend

import (
	"context"
	"os"
	"strings"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// readLoose reads a single loose ref file's raw content with its
// trailing newlines trimmed. Symlinks are followed by os.ReadFile
// without checking where they point (they are never written).
func readLoose(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimRight(string(data), "\n"), true, nil
}

func parseRawContent(content string) (refs.RawRef, error) {
	if target, ok := strings.CutPrefix(content, "ref: "); ok {
		return refs.RawRef{Symref: target, Flags: refs.IsSymref}, nil
	}

	// The open question (§9): lenient on leading whitespace for a
	// direct OID, strict (no stripping) for the "ref: " arm.
	trimmed := strings.TrimLeft(content, " ")
	if !oid.LooksLikeHex(trimmed) {
		return refs.RawRef{Flags: refs.IsBroken}, nil
	}
	o, err := oid.Parse(trimmed)
	if err != nil {
		return refs.RawRef{Flags: refs.IsBroken}, nil
	}
	return refs.RawRef{OID: o}, nil
}

func (b *Backend) getPackedRefs() (*packedRefs, error) {
	b.mu.RLock()
	if b.packedRead {
		p := b.packed
		b.mu.RUnlock()
		return p, nil
	}
	b.mu.RUnlock()

	p, err := readPackedRefs(b.packedRefsPath())
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.packed = p
	b.packedRead = true
	b.mu.Unlock()
	return p, nil
}

// ReadRawRef tries loose first; if absent, binary-searches packed-refs.
func (b *Backend) ReadRawRef(ctx context.Context, name string) (refs.RawRef, error) {
	content, ok, err := readLoose(b.loosePath(name))
	if err != nil {
		return refs.RawRef{}, refserr.NewBrokenError(name, err.Error())
	}
	if ok {
		return parseRawContent(content)
	}

	packed, err := b.getPackedRefs()
	if err != nil {
		return refs.RawRef{}, refserr.NewBrokenError(name, err.Error())
	}
	if entry, found := packed.find(name); found {
		return refs.RawRef{OID: entry.OID}, nil
	}

	return refs.RawRef{}, refserr.NewNotFoundError(name)
}

// PeelRef returns the direct OID a ref ultimately names, looking at the
// packed-refs peeled annotation if present, else the ref's own OID.
func (b *Backend) PeelRef(ctx context.Context, name string) (oid.OID, error) {
	packed, err := b.getPackedRefs()
	if err == nil {
		if entry, found := packed.find(name); found && entry.Peeled != nil {
			return *entry.Peeled, nil
		}
	}
	raw, err := b.ReadRawRef(ctx, name)
	if err != nil {
		return oid.Null, err
	}
	return raw.OID, nil
}

// ResolveGitlinkRef resolves name inside a submodule's own ref store,
// rooted at <root>/modules/<submodule>.
func (b *Backend) ResolveGitlinkRef(ctx context.Context, submodule, name string) (oid.OID, error) {
	sub := New(b.root + "/modules/" + submodule)
	raw, err := sub.ReadRawRef(ctx, name)
	if err != nil {
		return oid.Null, err
	}
	return raw.OID, nil
}
