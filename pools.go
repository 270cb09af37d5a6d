package ignite

import "sync"

// Buffer and schema-recorder pools for Writer scratch state, grounded on
// the teacher's pools.go (typed sync.Pool declarations with a matching
// release helper per pool).
var writerBufPool = &sync.Pool{
	New: func() any {
		return &buf{b: make([]byte, 0, 256)}
	},
}

func getWriterBuf() *buf {
	return writerBufPool.Get().(*buf)
}

func releaseWriterBuf(b *buf) {
	b.b = b.b[:0]
	writerBufPool.Put(b)
}

var schemaRecorderPool = &sync.Pool{
	New: func() any {
		return &schemaRecorder{entries: make([]schemaEntry, 0, 16)}
	},
}

func getSchemaRecorder() *schemaRecorder {
	return schemaRecorderPool.Get().(*schemaRecorder)
}

func releaseSchemaRecorder(r *schemaRecorder) {
	r.entries = r.entries[:0]
	schemaRecorderPool.Put(r)
}
