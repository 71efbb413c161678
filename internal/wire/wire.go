// Package wire frames values stored by package tier so a reader can tell which
// epoch (generation) wrote them.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("ownercache: corrupt frame")
	magic4     = [...]byte{'O', 'C', 'F', 'R'}
)

// Encode frames payload written under generation gen:
//
//	magic(4) | ver(1) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func Encode(gen uint64, payload []byte) []byte {
	out := make([]byte, hdrLen+len(payload))
	copy(out, magic4[:])
	out[4] = version
	binary.BigEndian.PutUint64(out[5:13], gen)
	binary.BigEndian.PutUint32(out[13:17], uint32(len(payload)))
	copy(out[hdrLen:], payload)
	return out
}

// Decode validates a frame and returns its generation and payload. The
// payload aliases b. Truncated frames and trailing bytes are corrupt.
func Decode(b []byte) (gen uint64, payload []byte, err error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return 0, nil, ErrCorrupt
	}
	gen = binary.BigEndian.Uint64(b[5:13])
	vlen := uint64(binary.BigEndian.Uint32(b[13:17]))
	if vlen != uint64(len(b)-hdrLen) {
		return 0, nil, ErrCorrupt
	}
	return gen, b[hdrLen:], nil
}
