package ignite

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Decimal is the wire-exact representation of the DECIMAL primitive:
// an arbitrary-precision unscaled magnitude plus a base-10 scale,
// matching Java's BigDecimal(unscaledValue, scale) bit-for-bit. Built on
// math/big rather than a coefficient/exponent decimal library — see
// DESIGN.md for why cockroachdb/apd was rejected for this type.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// NewDecimal builds a Decimal from an unscaled big.Int and a scale,
// taking ownership of unscaled (callers should clone if they intend to
// keep mutating it).
func NewDecimal(unscaled *big.Int, scale int32) Decimal {
	return Decimal{Unscaled: unscaled, Scale: scale}
}

func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "<nil>"
	}
	r := new(big.Rat).SetFrac(d.Unscaled, pow10(d.Scale))
	return r.FloatString(int(max32(d.Scale, 0)))
}

func pow10(scale int32) *big.Int {
	if scale <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// writeDecimal encodes scale (int32) then magnitude length (int32) then
// the big-endian two's-complement magnitude bytes, with the sign folded
// into the scale's top bit per spec §6.1.
func writeDecimal(w *buf, d Decimal) {
	unscaled := d.Unscaled
	if unscaled == nil {
		unscaled = new(big.Int)
	}
	neg := unscaled.Sign() < 0
	mag := new(big.Int).Abs(unscaled).Bytes()
	// a leading zero byte's top bit would otherwise be read as the
	// magnitude's own sign; big-endian two's complement requires it
	// whenever the top bit of the first real byte is set.
	if len(mag) == 0 {
		mag = []byte{0}
	} else if mag[0]&0x80 != 0 {
		mag = append([]byte{0}, mag...)
	}
	scale := uint32(d.Scale)
	if neg {
		scale |= 1 << 31
	}
	w.writeUint32(scale)
	w.writeUint32(uint32(len(mag)))
	w.writeRaw(mag)
}

func readDecimal(d *dec) (Decimal, error) {
	rawScale, err := d.readUint32()
	if err != nil {
		return Decimal{}, err
	}
	n, err := d.readUint32()
	if err != nil {
		return Decimal{}, err
	}
	mag, err := d.readRaw(int(n))
	if err != nil {
		return Decimal{}, err
	}
	neg := rawScale&(1<<31) != 0
	scale := int32(rawScale &^ (1 << 31))
	unscaled := new(big.Int).SetBytes(mag)
	if neg {
		unscaled.Neg(unscaled)
	}
	return Decimal{Unscaled: unscaled, Scale: scale}, nil
}

// Timestamp is int64 millis since epoch plus an additional nanosecond
// remainder in [0, 1e6), matching spec §6.1's TIMESTAMP wire layout.
type Timestamp struct {
	Millis   int64
	NanosExt int32
}

func TimestampFromTime(t time.Time) Timestamp {
	millis := t.UnixMilli()
	nanosExt := int32(t.Nanosecond() % 1e6)
	return Timestamp{Millis: millis, NanosExt: nanosExt}
}

func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(ts.Millis).Add(time.Duration(ts.NanosExt))
}

func writeTimestamp(w *buf, ts Timestamp) {
	w.writeInt64(ts.Millis)
	w.writeInt32(ts.NanosExt)
}

func readTimestamp(d *dec) (Timestamp, error) {
	millis, err := d.readInt64()
	if err != nil {
		return Timestamp{}, err
	}
	nanosExt, err := d.readInt32()
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Millis: millis, NanosExt: nanosExt}, nil
}

// Date is int64 millis since epoch with no sub-millisecond component.
type Date int64

func DateFromTime(t time.Time) Date { return Date(t.UnixMilli()) }
func (d Date) Time() time.Time      { return time.UnixMilli(int64(d)) }

func writeDate(w *buf, d Date) { w.writeInt64(int64(d)) }

func readDate(d *dec) (Date, error) {
	v, err := d.readInt64()
	return Date(v), err
}

// writeUUID/readUUID encode as msb/lsb int64s, matching the Java
// representation and the real Ignite thin-client Go marshaller's use of
// github.com/google/uuid for exactly this wire type.
func writeUUID(w *buf, id uuid.UUID) {
	msb := int64(beUint64(id[0:8]))
	lsb := int64(beUint64(id[8:16]))
	w.writeInt64(msb)
	w.writeInt64(lsb)
}

func readUUID(d *dec) (uuid.UUID, error) {
	msb, err := d.readInt64()
	if err != nil {
		return uuid.UUID{}, err
	}
	lsb, err := d.readInt64()
	if err != nil {
		return uuid.UUID{}, err
	}
	var id uuid.UUID
	putBeUint64(id[0:8], uint64(msb))
	putBeUint64(id[8:16], uint64(lsb))
	return id, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func putBeUint64(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
