package accesspoint

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/isaaclins/psst/internal/domain"
)

// Payload layer shared by the handshake and the encrypted commands. Every
// variable-length field carries a 32-bit big-endian length prefix; fixed
// integers are big-endian. The reader latches its first error so a whole
// message can be picked apart before checking.

// maxWireField bounds any single length prefix on the wire.
const maxWireField = 1 << 20

type payloadWriter struct {
	buf bytes.Buffer
}

func (w *payloadWriter) bytes() []byte { return w.buf.Bytes() }

func (w *payloadWriter) writeByte(b byte) { w.buf.WriteByte(b) }

func (w *payloadWriter) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *payloadWriter) writeInt32(v int32) { w.writeUint32(uint32(v)) }

func (w *payloadWriter) writeBytes(b []byte) {
	w.writeUint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *payloadWriter) writeString(s string) {
	w.writeUint32(uint32(len(s)))
	w.buf.WriteString(s)
}

func (w *payloadWriter) writeBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *payloadWriter) writeRaw(b []byte) { w.buf.Write(b) }

type payloadReader struct {
	buf []byte
	err error
}

func newPayloadReader(data []byte) *payloadReader {
	return &payloadReader{buf: data}
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = fmt.Errorf("payload truncated: need %d bytes, have %d", n, len(r.buf))
		return nil
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out
}

func (r *payloadReader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) readUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *payloadReader) readInt32() int32 {
	return int32(r.readUint32())
}

func (r *payloadReader) readBool() bool { return r.readByte() != 0 }

func (r *payloadReader) readLen() int {
	n := r.readUint32()
	if n > maxWireField {
		r.err = fmt.Errorf("payload field length %d exceeds limit", n)
		return 0
	}
	return int(n)
}

func (r *payloadReader) readBytes() []byte {
	n := r.readLen()
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *payloadReader) readString() string {
	return string(r.take(r.readLen()))
}

func (r *payloadReader) finish() error {
	if r.err != nil {
		return r.err
	}
	if len(r.buf) != 0 {
		return fmt.Errorf("payload has %d trailing bytes", len(r.buf))
	}
	return nil
}

// Metadata records as they travel over the encrypted channel. The field
// order matches the cached form, but the wire layer versions independently
// of the on-disk store.

func writeTrackRecord(w *payloadWriter, record *domain.TrackRecord) {
	w.writeString(record.Name)
	w.writeString(record.Album)
	w.writeUint32(uint32(len(record.Artists)))
	for _, artist := range record.Artists {
		w.writeString(artist)
	}
	w.writeInt32(record.Number)
	w.writeInt32(record.DiscNumber)
	w.writeInt32(record.DurationMs)
	w.writeInt32(record.Popularity)
	w.writeBool(record.Explicit)
	writeFileRefs(w, record.Files)
}

func readTrackRecord(r *payloadReader) *domain.TrackRecord {
	var record domain.TrackRecord
	record.Name = r.readString()
	record.Album = r.readString()
	n := r.readUint32()
	for i := uint32(0); i < n && r.err == nil; i++ {
		record.Artists = append(record.Artists, r.readString())
	}
	record.Number = r.readInt32()
	record.DiscNumber = r.readInt32()
	record.DurationMs = r.readInt32()
	record.Popularity = r.readInt32()
	record.Explicit = r.readBool()
	record.Files = readFileRefs(r)
	return &record
}

func writeEpisodeRecord(w *payloadWriter, record *domain.EpisodeRecord) {
	w.writeString(record.Name)
	w.writeString(record.Show)
	w.writeInt32(record.DurationMs)
	w.writeBool(record.Explicit)
	writeFileRefs(w, record.Files)
}

func readEpisodeRecord(r *payloadReader) *domain.EpisodeRecord {
	var record domain.EpisodeRecord
	record.Name = r.readString()
	record.Show = r.readString()
	record.DurationMs = r.readInt32()
	record.Explicit = r.readBool()
	record.Files = readFileRefs(r)
	return &record
}

func writeFileRefs(w *payloadWriter, files []domain.AudioFileRef) {
	w.writeUint32(uint32(len(files)))
	for _, f := range files {
		w.writeRaw(f.ID[:])
		w.writeByte(byte(f.Format))
	}
}

func readFileRefs(r *payloadReader) []domain.AudioFileRef {
	n := r.readUint32()
	var files []domain.AudioFileRef
	for i := uint32(0); i < n && r.err == nil; i++ {
		raw := r.take(20)
		format := r.readByte()
		if r.err != nil {
			break
		}
		id, _ := domain.FileIdFromRaw(raw)
		files = append(files, domain.AudioFileRef{
			ID:     id,
			Format: domain.AudioFormat(format),
		})
	}
	return files
}
