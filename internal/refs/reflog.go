package refs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marmos91/refstore/internal/oid"
)

// ReflogEntry is one recorded change of value for a single ref: the old
// and new OID, the identity that made the change, the wall-clock time it
// happened, and an optional free-form message.
type ReflogEntry struct {
	Old      oid.OID
	New      oid.OID
	Identity string // "Name <email>" form
	Time     int64  // unix seconds
	TZOffset int    // minutes east of UTC
	Message  string
}

// minReflogLineLen is a cheap lower bound on the length of an encoded
// entry: the two 40-hex OIDs (80 bytes) plus three more bytes. Every
// well-formed line is longer; the field-by-field parse does the rest.
const minReflogLineLen = 83

// EncodeReflogEntry renders e as one line of a reflog file:
// "<old> <new> <identity> <time> <tz>[\t<message>]\n".
// Newlines in the message are folded to single spaces, runs of
// whitespace collapsed, and leading/trailing whitespace trimmed.
func EncodeReflogEntry(e ReflogEntry) string {
	var b strings.Builder
	b.WriteString(e.Old.String())
	b.WriteByte(' ')
	b.WriteString(e.New.String())
	b.WriteByte(' ')
	b.WriteString(e.Identity)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(e.Time, 10))
	b.WriteByte(' ')
	b.WriteString(formatTZ(e.TZOffset))

	if msg := normalizeMessage(e.Message); msg != "" {
		b.WriteByte('\t')
		b.WriteString(msg)
	}
	b.WriteByte('\n')
	return b.String()
}

func formatTZ(minutes int) string {
	sign := byte('+')
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d%02d", sign, minutes/60, minutes%60)
}

func normalizeMessage(msg string) string {
	fields := strings.Fields(msg)
	return strings.TrimSpace(strings.Join(fields, " "))
}

// DecodeReflogEntry parses one reflog line (without its trailing
// newline). Lines shorter than minReflogLineLen, or with separators in
// the wrong place, are rejected.
func DecodeReflogEntry(line string) (ReflogEntry, error) {
	var e ReflogEntry
	if len(line) < minReflogLineLen {
		return e, fmt.Errorf("reflog: line too short (%d bytes)", len(line))
	}

	rest := line
	var msg string
	if tab := strings.IndexByte(rest, '\t'); tab >= 0 {
		msg = rest[tab+1:]
		rest = rest[:tab]
	}
	if len(rest) < 2*(oid.HexSize+1) {
		return e, fmt.Errorf("reflog: line too short before message (%d bytes)", len(rest))
	}

	oldHex := rest[:oid.HexSize]
	if rest[oid.HexSize] != ' ' {
		return e, fmt.Errorf("reflog: expected space after old oid")
	}
	rest = rest[oid.HexSize+1:]

	newHex := rest[:oid.HexSize]
	if rest[oid.HexSize] != ' ' {
		return e, fmt.Errorf("reflog: expected space after new oid")
	}
	rest = rest[oid.HexSize+1:]

	// identity runs up to and including the closing '>' of the email.
	gt := strings.LastIndexByte(rest, '>')
	if gt < 0 {
		return e, fmt.Errorf("reflog: missing identity email terminator")
	}
	identity := rest[:gt+1]
	rest = strings.TrimPrefix(rest[gt+1:], " ")

	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 {
		return e, fmt.Errorf("reflog: missing timestamp or timezone")
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return e, fmt.Errorf("reflog: invalid timestamp: %w", err)
	}
	tz, err := parseTZ(fields[1])
	if err != nil {
		return e, fmt.Errorf("reflog: invalid timezone: %w", err)
	}

	oldOID, err := oid.Parse(oldHex)
	if err != nil {
		return e, fmt.Errorf("reflog: invalid old oid: %w", err)
	}
	newOID, err := oid.Parse(newHex)
	if err != nil {
		return e, fmt.Errorf("reflog: invalid new oid: %w", err)
	}

	e.Old = oldOID
	e.New = newOID
	e.Identity = identity
	e.Time = ts
	e.TZOffset = tz
	e.Message = msg
	return e, nil
}

func parseTZ(s string) (int, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return 0, fmt.Errorf("malformed timezone %q", s)
	}
	hh, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, err
	}
	mm, err := strconv.Atoi(s[3:5])
	if err != nil {
		return 0, err
	}
	minutes := hh*60 + mm
	if s[0] == '-' {
		minutes = -minutes
	}
	return minutes, nil
}
