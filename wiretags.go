package ignite

// Header layout, little-endian throughout:
//
//	offset  size  field
//	 0       1    tag (headerTag)
//	 1       1    protocol version
//	 2       2    flags
//	 4       4    typeId
//	 8       4    hashCode
//	12       4    totalLength
//	16       4    schemaId
//	20       4    schemaOrRawOffset
const (
	headerSize   = 24
	headerTag    = byte(0x67)
	protoVersion = byte(1)
)

// Header flag bits.
type flags uint16

const (
	flagUserType      flags = 1 << 0
	flagHasSchema     flags = 1 << 1
	flagHasRaw        flags = 1 << 2
	flagOffset1       flags = 1 << 3
	flagOffset2       flags = 1 << 4
	flagCompactFooter flags = 1 << 5
)

func (f flags) has(b flags) bool { return f&b != 0 }

// Primitive and container tags. Values follow the real Ignite binary
// protocol's GridBinaryMarshaller constants so the wire format lines up
// with deployed peers that speak it.
const (
	tagByte       = byte(1)
	tagShort      = byte(2)
	tagInt        = byte(3)
	tagLong       = byte(4)
	tagFloat      = byte(5)
	tagDouble     = byte(6)
	tagChar       = byte(7)
	tagBoolean    = byte(8)
	tagString     = byte(9)
	tagUUID       = byte(10)
	tagDate       = byte(11)
	tagByteArr    = byte(12)
	tagShortArr   = byte(13)
	tagIntArr     = byte(14)
	tagLongArr    = byte(15)
	tagFloatArr   = byte(16)
	tagDoubleArr  = byte(17)
	tagCharArr    = byte(18)
	tagBooleanArr = byte(19)
	tagStringArr  = byte(20)
	tagUUIDArr    = byte(21)
	tagDateArr    = byte(22)
	tagObjectArr  = byte(23)
	tagCol        = byte(24)
	tagMap        = byte(25)
	tagMapEntry   = byte(26)
	tagPortable   = byte(27)
	tagEnum       = byte(28)
	tagEnumArr    = byte(29)
	tagDecimal    = byte(30)
	tagDecimalArr = byte(31)
	tagClass      = byte(35)
	tagTimestamp  = byte(33)
	tagTimestampArr = byte(34)

	tagNull   = byte(101)
	tagHandle = byte(102)
	tagObject = headerTag // 0x67, also the user-type header tag

	// unregisteredTypeID is the sentinel typeId written when the
	// writer has no cluster-wide id for a type yet; the fully
	// qualified type name follows as a STRING before the field region.
	unregisteredTypeID = int32(0)
)
