package store

import (
	"encoding/binary"
)

// Pebble keyspace.
//
// Layout (byte-wise, lexicographically sortable):
// - rec/{ts_be8}/{message_id}

var recPrefix = []byte("rec/")

const keySep = byte('/')

func recordKey(ts int64, messageID string) []byte {
	k := make([]byte, 0, len(recPrefix)+8+1+len(messageID))
	k = append(k, recPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts))
	k = append(k, b[:]...)
	k = append(k, keySep)
	k = append(k, messageID...)
	return k
}

// recordLowerBound is the smallest possible key at the given timestamp.
func recordLowerBound(ts int64) []byte {
	k := make([]byte, 0, len(recPrefix)+8)
	k = append(k, recPrefix...)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts))
	k = append(k, b[:]...)
	return k
}

// recordUpperBound is the exclusive upper bound for the whole record keyspace.
// '0' sorts immediately after '/', so every "rec/..." key is below it.
func recordUpperBound() []byte { return []byte("rec0") }

// parseRecordKey splits a record key back into its timestamp and message_id.
func parseRecordKey(k []byte) (int64, string, bool) {
	if len(k) < len(recPrefix)+8+1 {
		return 0, "", false
	}
	body := k[len(recPrefix):]
	ts := int64(binary.BigEndian.Uint64(body[:8]))
	if body[8] != keySep {
		return 0, "", false
	}
	return ts, string(body[9:]), true
}
