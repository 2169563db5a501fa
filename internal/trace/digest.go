package trace

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// DomainTrace prefixes trace digests. The version suffix allows the
// encoding to change without colliding with old digests.
const DomainTrace = "bayesharness/trace/v1"

// Digest returns the content address of the trace: SHA-256 over the domain,
// a 0x00 separator, the variable layout and every draw value in order.
// RunID is not part of the digest.
func (t *Trace) Digest() string {
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})

	writeUint(h, uint64(len(t.Vars)))
	for _, v := range t.Vars {
		writeUint(h, uint64(len(v.Name)))
		h.Write([]byte(v.Name))
		writeUint(h, uint64(len(v.Shape)))
		for _, d := range v.Shape {
			writeUint(h, uint64(d))
		}
	}

	writeUint(h, uint64(len(t.Draws)))
	for _, d := range t.Draws {
		for _, v := range t.Vars {
			for _, x := range d[v.Name] {
				writeUint(h, math.Float64bits(x))
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeUint(h hash.Hash, u uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	h.Write(buf[:])
}
