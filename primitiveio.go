package ignite

import (
	"encoding/binary"
	"math"
)

// buf holds a growable little-endian byte buffer plus the absolute
// fixed-width read/write primitives the rest of the codec is built on.
// Grounded on the teacher's byteutil.go (ensureCapacity/grow/byteBuf),
// generalized from uvarint-oriented encoding to the spec's fixed-width
// little-endian layout with absolute-offset back-patching.
type buf struct {
	b []byte
}

func ensureCapacity(b []byte, minCap int) []byte {
	c := cap(b)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := b
		b = make([]byte, len(old), c)
		copy(b, old)
	}
	return b
}

func (w *buf) grow(n int) int {
	off := len(w.b)
	w.b = ensureCapacity(w.b, off+n)
	w.b = w.b[:off+n]
	return off
}

func (w *buf) len() int { return len(w.b) }

func (w *buf) writeByte(v byte) int {
	off := w.grow(1)
	w.b[off] = v
	return off
}

func (w *buf) writeRaw(v []byte) int {
	off := w.grow(len(v))
	copy(w.b[off:], v)
	return off
}

func (w *buf) writeUint16(v uint16) int {
	off := w.grow(2)
	binary.LittleEndian.PutUint16(w.b[off:], v)
	return off
}

func (w *buf) writeUint32(v uint32) int {
	off := w.grow(4)
	binary.LittleEndian.PutUint32(w.b[off:], v)
	return off
}

func (w *buf) writeInt32(v int32) int { return w.writeUint32(uint32(v)) }

func (w *buf) writeUint64(v uint64) int {
	off := w.grow(8)
	binary.LittleEndian.PutUint64(w.b[off:], v)
	return off
}

func (w *buf) writeInt64(v int64) int { return w.writeUint64(uint64(v)) }

func (w *buf) writeFloat32(v float32) int { return w.writeUint32(math.Float32bits(v)) }
func (w *buf) writeFloat64(v float64) int { return w.writeUint64(math.Float64bits(v)) }

// patchUint32At overwrites an already-written uint32 field, used for
// header back-patching once totalLength/schemaId/etc. are known.
func (w *buf) patchUint32At(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.b[off:], v)
}

func (w *buf) patchInt32At(off int, v int32) { w.patchUint32At(off, uint32(v)) }

func (w *buf) patchUint16At(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.b[off:], v)
}

// dec is a forward-only cursor over a borrowed byte slice, reporting
// CorruptFrame on any short read. Grounded on the teacher's byteDecoder,
// generalized to fixed-width little-endian reads plus absolute seeks
// for random field access.
type dec struct {
	orig []byte
	off  int
}

func newDec(b []byte) *dec { return &dec{orig: b} }

func (d *dec) remaining() int { return len(d.orig) - d.off }

func (d *dec) seek(off int) { d.off = off }

func (d *dec) need(n int) error {
	if d.remaining() < n {
		return corruptFrame(d.orig, d.off, nil, "not enough data: %d bytes remaining, %d wanted", d.remaining(), n)
	}
	return nil
}

func (d *dec) readByte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.orig[d.off]
	d.off++
	return v, nil
}

func (d *dec) readRaw(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	v := d.orig[d.off : d.off+n]
	d.off += n
	return v, nil
}

func (d *dec) readUint16() (uint16, error) {
	b, err := d.readRaw(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *dec) readUint32() (uint32, error) {
	b, err := d.readRaw(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *dec) readInt32() (int32, error) {
	v, err := d.readUint32()
	return int32(v), err
}

func (d *dec) readUint64() (uint64, error) {
	b, err := d.readRaw(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *dec) readInt64() (int64, error) {
	v, err := d.readUint64()
	return int64(v), err
}

func (d *dec) readFloat32() (float32, error) {
	v, err := d.readUint32()
	return math.Float32frombits(v), err
}

func (d *dec) readFloat64() (float64, error) {
	v, err := d.readUint64()
	return math.Float64frombits(v), err
}

// readOffsetWidth reads a footer offset field whose byte width is
// determined by the header's OFFSET_1/OFFSET_2 flags (defaulting to
// 4 bytes when neither is set), per the footer-width-minimality rule.
func (d *dec) readOffsetWidth(f flags) (int, error) {
	switch {
	case f.has(flagOffset1):
		v, err := d.readByte()
		return int(v), err
	case f.has(flagOffset2):
		v, err := d.readUint16()
		return int(v), err
	default:
		v, err := d.readUint32()
		return int(v), err
	}
}
