package kernel

import (
	"encoding/binary"
	"math"

	"github.com/vk/qpugridgo/internal/qerr"
)

// ArgEncoder builds an argument buffer. Trivial scalars are copied
// byte-for-byte in little-endian layout; a sequence is written as an 8-byte
// unsigned element count followed by the concatenation of each element's own
// encoding, recursively.
type ArgEncoder struct {
	buf []byte
}

// NewArgEncoder creates an empty encoder.
func NewArgEncoder() *ArgEncoder {
	return &ArgEncoder{}
}

// Float64 appends one 8-byte float.
func (e *ArgEncoder) Float64(v float64) *ArgEncoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

// Int64 appends one 8-byte signed integer.
func (e *ArgEncoder) Int64(v int64) *ArgEncoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
	return e
}

// Uint64 appends one 8-byte unsigned integer.
func (e *ArgEncoder) Uint64(v uint64) *ArgEncoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

// Bool appends one byte, 0 or 1.
func (e *ArgEncoder) Bool(v bool) *ArgEncoder {
	b := byte(0)
	if v {
		b = 1
	}
	e.buf = append(e.buf, b)
	return e
}

// BeginSeq appends the 8-byte element-count prefix for a sequence of n
// elements. The caller then appends exactly n element encodings.
func (e *ArgEncoder) BeginSeq(n int) *ArgEncoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(n))
	return e
}

// Float64Seq appends a length-prefixed sequence of floats.
func (e *ArgEncoder) Float64Seq(vs []float64) *ArgEncoder {
	e.BeginSeq(len(vs))
	for _, v := range vs {
		e.Float64(v)
	}
	return e
}

// Bytes returns the encoded buffer.
func (e *ArgEncoder) Bytes() []byte {
	return e.buf
}

// ArgDecoder reads an argument buffer back. The encoding is not
// self-describing: the reader must consume values in the exact order and
// types they were written. Any read past the end of the buffer, and any
// bytes left over after Close, is a protocol violation.
type ArgDecoder struct {
	buf []byte
	off int
}

// NewArgDecoder creates a decoder over buf.
func NewArgDecoder(buf []byte) *ArgDecoder {
	return &ArgDecoder{buf: buf}
}

func (d *ArgDecoder) take(n int) ([]byte, error) {
	if d.off+n > len(d.buf) {
		return nil, qerr.Newf(qerr.ProtocolViolation,
			"argument buffer truncated: need %d bytes at offset %d, have %d", n, d.off, len(d.buf)-d.off)
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// Float64 reads one 8-byte float.
func (d *ArgDecoder) Float64() (float64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// Int64 reads one 8-byte signed integer.
func (d *ArgDecoder) Int64() (int64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// Uint64 reads one 8-byte unsigned integer.
func (d *ArgDecoder) Uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Bool reads one byte written by ArgEncoder.Bool.
func (d *ArgDecoder) Bool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, qerr.Newf(qerr.ProtocolViolation, "invalid bool byte %#x at offset %d", b[0], d.off-1)
	}
}

// SeqLen reads the 8-byte element count of a sequence.
func (d *ArgDecoder) SeqLen() (uint64, error) {
	return d.Uint64()
}

// Float64Seq reads a length-prefixed sequence of floats.
func (d *ArgDecoder) Float64Seq() ([]float64, error) {
	n, err := d.SeqLen()
	if err != nil {
		return nil, err
	}
	// A count that cannot possibly fit in the remaining bytes is rejected
	// before allocation. Compare counts, not byte totals: n*8 overflows for
	// a crafted prefix near 2^64.
	if n > uint64(d.Remaining())/8 {
		return nil, qerr.Newf(qerr.ProtocolViolation,
			"sequence length %d exceeds remaining buffer (%d bytes)", n, len(d.buf)-d.off)
	}
	vs := make([]float64, n)
	for i := range vs {
		if vs[i], err = d.Float64(); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

// Remaining reports how many undecoded bytes are left.
func (d *ArgDecoder) Remaining() int {
	return len(d.buf) - d.off
}

// Close verifies the whole buffer was consumed. Over-long buffers are a
// protocol violation, same as truncated ones.
func (d *ArgDecoder) Close() error {
	if rem := d.Remaining(); rem != 0 {
		return qerr.Newf(qerr.ProtocolViolation, "argument buffer has %d undecoded trailing bytes", rem)
	}
	return nil
}
