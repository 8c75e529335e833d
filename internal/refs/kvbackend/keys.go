package kvbackend

import "encoding/binary"

// refKey builds the storage key for a ref's direct entry:
// "<refname>\0".
func refKey(name string) []byte {
	k := make([]byte, len(name)+1)
	copy(k, name)
	return k
}

// reflogPrefix is "logs/<refname>\0", the common prefix of a ref's
// header key and every one of its entry keys.
func reflogPrefix(name string) []byte {
	p := make([]byte, 0, 5+len(name)+1)
	p = append(p, "logs/"...)
	p = append(p, name...)
	p = append(p, 0)
	return p
}

// reflogHeaderKey is the reflog-existence marker: the prefix followed
// by 8 zero bytes, which sorts before every real entry key (whose
// timestamp is a strictly positive nanosecond count).
func reflogHeaderKey(name string) []byte {
	return append(reflogPrefix(name), make([]byte, 8)...)
}

// reflogEntryKey is the prefix followed by the entry's big-endian
// nanosecond timestamp, so key order is chronological order.
func reflogEntryKey(name string, nanos int64) []byte {
	k := append(reflogPrefix(name), make([]byte, 8)...)
	binary.BigEndian.PutUint64(k[len(k)-8:], uint64(nanos))
	return k
}

// reflogEntryExclusiveEnd is the exclusive upper bound for a range
// scan over name's reflog entries: the next possible header key after
// incrementing the last prefix byte.
func reflogEntryExclusiveEnd(name string) []byte {
	prefix := reflogPrefix(name)
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return append(end, 0xff)
}

func directValue(hex string) []byte {
	v := make([]byte, 0, len(hex)+1)
	v = append(v, hex...)
	v = append(v, 0)
	return v
}

func symrefValue(target string) []byte {
	v := make([]byte, 0, 5+len(target)+1)
	v = append(v, "ref: "...)
	v = append(v, target...)
	v = append(v, 0)
	return v
}
