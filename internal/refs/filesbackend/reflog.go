package filesbackend

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/marmos91/refstore/internal/refs"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// appendReflog opens-for-append under lock and writes one encoded
// record derived from u's pending change.
func (b *Backend) appendReflog(name string, u *refs.Update) error {
	path := b.reflogPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return refserr.NewLockError(name, "reflog append failed: "+err.Error())
	}
	defer f.Close()

	entry := refs.ReflogEntry{
		Old:      u.Old,
		New:      u.New,
		Identity: "refstore <refstore@localhost>",
		Time:     time.Now().Unix(),
		TZOffset: localTZOffsetMinutes(),
		Message:  u.Message,
	}
	if _, err := f.WriteString(refs.EncodeReflogEntry(entry)); err != nil {
		return refserr.NewLockError(name, "reflog write failed: "+err.Error())
	}
	return f.Sync()
}

func localTZOffsetMinutes() int {
	_, offset := time.Now().Zone()
	return offset / 60
}

// ReflogExists reports whether name has a reflog file.
func (b *Backend) ReflogExists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(b.reflogPath(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateReflog creates an empty reflog file for name if one does not
// already exist.
func (b *Backend) CreateReflog(ctx context.Context, name string) error {
	path := b.reflogPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return refserr.NewLockError(name, err.Error())
	}
	return f.Close()
}

func (b *Backend) DeleteReflog(ctx context.Context, name string) error {
	if err := os.Remove(b.reflogPath(name)); err != nil && !os.IsNotExist(err) {
		return refserr.NewLockError(name, err.Error())
	}
	return nil
}

func (b *Backend) readReflogLines(name string) ([]string, error) {
	f, err := os.Open(b.reflogPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// ForEachReflogEnt iterates forward by line read.
func (b *Backend) ForEachReflogEnt(ctx context.Context, name string, fn refs.ReflogEntryFunc) error {
	lines, err := b.readReflogLines(name)
	if err != nil {
		return err
	}
	for _, line := range lines {
		entry, derr := refs.DecodeReflogEntry(line)
		if derr != nil {
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// ForEachReflogEntReverse reads the whole file and walks backwards.
func (b *Backend) ForEachReflogEntReverse(ctx context.Context, name string, fn refs.ReflogEntryFunc) error {
	lines, err := b.readReflogLines(name)
	if err != nil {
		return err
	}
	for i := len(lines) - 1; i >= 0; i-- {
		entry, derr := refs.DecodeReflogEntry(lines[i])
		if derr != nil {
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// ReflogExpire reads all entries, applies opts.Keep, writes survivors
// to a temp file, and renames over the original. If opts.UpdateRef is
// set, the ref is non-symbolic, and at least one entry survives, the
// ref is also updated to the last kept entry's New value.
func (b *Backend) ReflogExpire(ctx context.Context, name string, opts refs.ExpireOptions) error {
	lines, err := b.readReflogLines(name)
	if err != nil {
		return err
	}

	var kept []refs.ReflogEntry
	for _, line := range lines {
		entry, derr := refs.DecodeReflogEntry(line)
		if derr != nil {
			continue
		}
		if opts.Keep == nil || opts.Keep(entry) {
			kept = append(kept, entry)
		}
	}

	path := b.reflogPath(name)
	tmp := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return refserr.NewLockError(name, err.Error())
	}
	for _, e := range kept {
		if _, err := f.WriteString(refs.EncodeReflogEntry(e)); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	if opts.UpdateRef && len(kept) > 0 {
		raw, rerr := b.ReadRawRef(ctx, name)
		if rerr == nil && raw.Symref == "" {
			last := kept[len(kept)-1]
			lock, lerr := b.acquireLock(name)
			if lerr != nil {
				return lerr
			}
			if cerr := lock.commit(b.loosePath(name), last.New.String()+"\n"); cerr != nil {
				return refserr.NewLockError(name, cerr.Error())
			}
			b.invalidatePackedCache()
		}
	}
	return nil
}
