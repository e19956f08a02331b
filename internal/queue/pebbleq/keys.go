package pebbleq

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - q/{queue}/m                 last assigned sequence (8B)
// - q/{queue}/msg/{seq_be8}     message payload
// - q/{queue}/avail/{seq_be8}   availability index (empty value)
// - q/{queue}/lease/{seq_be8}   lease expiry ms (8B)

var (
	qPrefix     = []byte("q/")
	metaSuffix  = []byte("/m")
	msgSeg      = []byte("/msg/")
	availSeg    = []byte("/avail/")
	leaseSeg    = []byte("/lease/")
	upperSuffix = byte(0xFF)
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func metaKey(queue string) []byte {
	k := make([]byte, 0, len(queue)+8)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, metaSuffix...)
	return k
}

func msgKey(queue string, seq uint64) []byte {
	k := make([]byte, 0, len(queue)+16)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, msgSeg...)
	return appendBE8(k, seq)
}

func availKey(queue string, seq uint64) []byte {
	k := make([]byte, 0, len(queue)+16)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, availSeg...)
	return appendBE8(k, seq)
}

func leaseKey(queue string, seq uint64) []byte {
	k := make([]byte, 0, len(queue)+16)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, leaseSeg...)
	return appendBE8(k, seq)
}

func availPrefix(queue string) []byte {
	k := make([]byte, 0, len(queue)+10)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, availSeg...)
	return k
}

func leasePrefix(queue string) []byte {
	k := make([]byte, 0, len(queue)+10)
	k = append(k, qPrefix...)
	k = append(k, queue...)
	k = append(k, leaseSeg...)
	return k
}

func upperBound(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), upperSuffix)
}

func seqFromKey(k []byte, prefix []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(prefix):])
}
