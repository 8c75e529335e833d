package refs

import (
	"context"
	"time"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/internal/refname"
	"github.com/marmos91/refstore/internal/refs/metrics"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// SplitCommitWarning is the accepted non-atomic failure mode of a
// cross-backend commit: the primary backend's sub-transaction
// succeeded but the per-worktree/pseudoref sub-transaction, committed
// second against the files backend, failed.
const SplitCommitWarning = "A ref transaction was split across two refs backends. " +
	"Part of the transaction succeeded, but then the update to the per-worktree refs failed. " +
	"Your repository may be in an inconsistent state."

// CommitResult carries the split-commit warning of Coordinator.Commit
// on its own side channel; a hard error is returned separately and is
// never merged into it (§9 design note).
type CommitResult struct {
	SplitWarning string // non-empty iff the split-transaction warning fired
}

// Coordinator drives the commit pipeline shared by every transaction:
// symref dereferencing, per-backend splitting, and ordered multi-commit.
type Coordinator struct {
	FilesBackend Backend // always available; used for non-NORMAL updates
	Metrics      *metrics.Metrics // optional; nil disables instrumentation
}

// NewCoordinator builds a coordinator that always routes per-worktree
// and pseudoref updates to filesBackend, regardless of which backend a
// transaction was opened against.
func NewCoordinator(filesBackend Backend) *Coordinator {
	return &Coordinator{FilesBackend: filesBackend}
}

// Commit runs the pipeline described in §4.9:
//  1. dereference symrefs
//  2. split updates by ref kind across backends
//  3. check uniqueness per sub-transaction
//  4. commit the primary (original) transaction
//  5. commit the auxiliary files sub-transaction, if one was produced
//  6. transition to CLOSED and free
func (c *Coordinator) Commit(ctx context.Context, tx *Transaction) (CommitResult, error) {
	var result CommitResult
	defer tx.Free()

	start := time.Now()
	if c.Metrics != nil {
		defer func() {
			c.Metrics.CommitDuration.WithLabelValues(tx.Backend.Name()).Observe(time.Since(start).Seconds())
		}()
	}

	if tx.State != StateOpen {
		return result, refserr.NewGenericError("", "transaction is not open")
	}
	tx.State = StatePrepared

	if err := c.dereferenceSymrefs(ctx, tx); err != nil {
		return result, err
	}

	auxTx := c.splitByKind(tx)

	if err := tx.checkUnique(); err != nil {
		return result, err
	}
	if auxTx != nil {
		if err := auxTx.checkUnique(); err != nil {
			return result, err
		}
	}

	primaryNames := tx.sortedNames()
	if err := tx.Backend.TransactionCommit(ctx, tx, primaryNames); err != nil {
		return result, err
	}

	if auxTx != nil {
		auxNames := auxTx.sortedNames()
		if err := c.FilesBackend.TransactionCommit(ctx, auxTx, auxNames); err != nil {
			logger.WarnCtx(ctx, "split-transaction commit failed",
				logger.ErrorCode(refserr.SplitCommitFailure.String()), logger.Err(err))
			if c.Metrics != nil {
				c.Metrics.SplitCommitTotal.Inc()
			}
			result.SplitWarning = SplitCommitWarning
			return result, nil
		}
	}

	tx.State = StateClosed
	return result, nil
}

// dereferenceSymrefs implements step 1: for each update whose NoDeref
// flag is not set and whose current value is symbolic, resolve once and
// append a new update targeting the leaf, marking the original LogOnly
// and NoDeref with HaveOld cleared.
func (c *Coordinator) dereferenceSymrefs(ctx context.Context, tx *Transaction) error {
	original := tx.Updates
	for _, u := range original {
		if u.Flags&NoDeref != 0 {
			continue
		}

		raw, err := tx.Backend.ReadRawRef(ctx, u.Refname)
		if err != nil || raw.Symref == "" {
			// Not currently symbolic (or unreadable, reported by the
			// backend at commit time): the original update is left as-is.
			continue
		}

		var readFlags ReadFlags
		if u.Flags&HaveOld != 0 {
			readFlags |= Reading
		}
		if u.Flags&Deleting != 0 {
			readFlags |= NoRecurse | AllowBadName
		}

		resolved, err := Resolve(ctx, tx.Backend, u.Refname, readFlags)
		if err != nil {
			// Broken symrefs are reported by the backend at commit time;
			// the original update survives unchanged.
			continue
		}
		if resolved.Name == u.Refname {
			continue
		}

		u.ReadOID = resolved.OID

		leaf := &Update{
			Refname: resolved.Name,
			New:     u.New,
			Old:     u.Old,
			Flags:   u.Flags,
			Message: u.Message,
		}
		tx.Updates = append(tx.Updates, leaf)

		u.Flags |= LogOnly | NoDeref
		u.Flags &^= HaveOld
	}
	return nil
}

// splitByKind implements step 2: if tx's backend is not the files
// backend, move every non-NORMAL update into a freshly created files
// transaction; NORMAL updates stay with tx. Returns nil if no split was
// needed.
func (c *Coordinator) splitByKind(tx *Transaction) *Transaction {
	if tx.Backend == c.FilesBackend {
		return nil
	}

	var normal, other []*Update
	for _, u := range tx.Updates {
		if refname.ClassifyKind(u.Refname) == refname.Normal {
			normal = append(normal, u)
		} else {
			other = append(other, u)
		}
	}
	if len(other) == 0 {
		return nil
	}

	tx.Updates = normal
	aux := &Transaction{Backend: c.FilesBackend, Updates: other, State: StatePrepared}
	return aux
}

// InitialCommit commits tx via InitialTransactionCommit, the variant
// used only by fresh-repository creation that bypasses per-ref
// existence checks.
func (c *Coordinator) InitialCommit(ctx context.Context, tx *Transaction) error {
	defer tx.Free()
	return tx.Backend.InitialTransactionCommit(ctx, tx)
}
