package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/alexchoi0/blueprint/internal/blueprintvalue"
)

// ComputeInputHash hashes a list of resolved RecordedValues (already
// stripped of their ValueRef indirection by the interpreter's
// ValueResolver) into the canonical hex digest used as the second half
// of a Keyed cache lookup. Equal value sequences always hash equal,
// regardless of how they were produced.
func ComputeInputHash(values []blueprintvalue.RecordedValue) string {
	h := sha256.New()
	for _, v := range values {
		hashValue(h, v)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type hasher interface {
	Write(p []byte) (int, error)
}

// hashValue writes a tag-prefixed, type-stable encoding of v into h:
// every variant begins with a one-byte Kind tag so that, e.g., an empty
// list and an empty dict never collide, floats are hashed as raw IEEE
// 754 bits (not their decimal text) so that hashing matches Go's own
// float equality semantics, and dict keys are visited in sorted order so
// that insertion order never affects the hash.
func hashValue(h hasher, v blueprintvalue.RecordedValue) {
	h.Write([]byte{byte(v.Kind)})
	switch v.Kind {
	case blueprintvalue.KindNone:
		// tag alone is the whole encoding
	case blueprintvalue.KindBool:
		if v.Bool {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case blueprintvalue.KindInt:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v.Int))
		h.Write(buf[:])
	case blueprintvalue.KindFloat:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], floatBits(v.Float))
		h.Write(buf[:])
	case blueprintvalue.KindString:
		writeLenPrefixed(h, []byte(v.Str))
	case blueprintvalue.KindBytes:
		writeLenPrefixed(h, v.Bytes)
	case blueprintvalue.KindList:
		writeUint64(h, uint64(len(v.List)))
		for _, item := range v.List {
			hashValue(h, item)
		}
	case blueprintvalue.KindDict:
		keys := v.SortedKeys()
		writeUint64(h, uint64(len(keys)))
		for _, k := range keys {
			writeLenPrefixed(h, []byte(k))
			hashValue(h, v.Dict[k])
		}
	}
}

func writeUint64(h hasher, n uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	h.Write(buf[:])
}

func writeLenPrefixed(h hasher, b []byte) {
	writeUint64(h, uint64(len(b)))
	h.Write(b)
}

// floatBits returns the raw IEEE 754 bit pattern of f.
func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}
