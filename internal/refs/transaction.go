package refs

import (
	"sort"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refname"
	"github.com/marmos91/refstore/internal/refs/refserr"
)

// TxnState is a transaction's position in its OPEN -> PREPARED -> CLOSED
// lifecycle.
type TxnState int

const (
	StateOpen TxnState = iota
	StatePrepared
	StateClosed
)

func (s TxnState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StatePrepared:
		return "PREPARED"
	default:
		return "CLOSED"
	}
}

// Update is a single staged change: (refname, new?, old?, flags, message?).
// ReadOID records the leaf OID observed during the coordinator's
// dereferencing pass (§4.9); it is zero until that pass runs.
type Update struct {
	Refname string
	New     oid.OID
	Old     oid.OID
	Flags   UpdateFlags
	Message string
	ReadOID oid.OID
}

// Transaction accumulates pending updates and enforces the OPEN ->
// PREPARED -> CLOSED state machine. It is created by Begin, mutated
// only in StateOpen, and destroyed by Commit or Free.
type Transaction struct {
	Backend Backend
	Updates []*Update
	State   TxnState
}

// Begin creates a new open transaction against backend.
func Begin(backend Backend) *Transaction {
	return &Transaction{Backend: backend, State: StateOpen}
}

func (t *Transaction) requireOpen() error {
	if t.State != StateOpen {
		return refserr.NewGenericError("", "transaction is not open")
	}
	return nil
}

// Update appends a staged change. It fails if the transaction is not
// OPEN, or if refname is syntactically bad while New carries a real
// OID.
func (t *Transaction) Update(name string, newOID, oldOID *oid.OID, flags UpdateFlags, message string) error {
	if err := t.requireOpen(); err != nil {
		return err
	}

	u := &Update{Refname: name, Flags: flags, Message: message}
	if newOID != nil {
		u.New = *newOID
		u.Flags |= HaveNew
		if u.New.IsNull() {
			u.Flags |= Deleting
		} else if reason := refname.Validate(name, refname.AllowOneLevel); reason != refname.RejectNone {
			return refserr.NewBadNameError(name, string(reason))
		}
	}
	if oldOID != nil {
		u.Old = *oldOID
		u.Flags |= HaveOld
	}

	t.Updates = append(t.Updates, u)
	return nil
}

// Create is Update(name, new, null, ...): fails if new is missing or
// null.
func (t *Transaction) Create(name string, newOID oid.OID, flags UpdateFlags, message string) error {
	if newOID.IsNull() {
		return refserr.NewGenericError(name, "create requires a non-null new value")
	}
	null := oid.Null
	return t.Update(name, &newOID, &null, flags, message)
}

// Delete is Update(name, null, old?, ...): fails if old? is exactly
// null.
func (t *Transaction) Delete(name string, oldOID *oid.OID, flags UpdateFlags, message string) error {
	if oldOID != nil && oldOID.IsNull() {
		return refserr.NewGenericError(name, "delete requires a non-null expected old value")
	}
	null := oid.Null
	return t.Update(name, &null, oldOID, flags, message)
}

// Verify is Update(name, absent, old, ...): fails if old is absent.
func (t *Transaction) Verify(name string, oldOID oid.OID) error {
	return t.Update(name, nil, &oldOID, 0, "")
}

// sortedNames returns the transaction's affected refnames in
// lexicographic order, used for duplicate detection and deterministic
// lock ordering.
func (t *Transaction) sortedNames() []string {
	names := make([]string, len(t.Updates))
	for i, u := range t.Updates {
		names[i] = u.Refname
	}
	sort.Strings(names)
	return names
}

// checkUnique fails with GenericError if any two updates share a
// refname.
func (t *Transaction) checkUnique() error {
	names := t.sortedNames()
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			return refserr.NewGenericError(names[i], "duplicate refname in transaction")
		}
	}
	return nil
}

// Free releases the transaction; safe on any state.
func (t *Transaction) Free() {
	t.Updates = nil
	t.State = StateClosed
}
