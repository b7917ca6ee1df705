package cache

// Length-prefixed binary codec for cached metadata records.
//
// Every variable-length field carries a 32-bit big-endian length prefix;
// fixed-width integers are 32-bit big-endian; booleans are a single byte.
// The decoder fails on any truncation or length overrun, which the cache
// reports as a miss.

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/isaaclins/psst/internal/domain"
)

// recordVersion guards against reading records written by an incompatible
// schema. A mismatch is a decode failure, hence a cache miss.
const recordVersion = 1

// maxFieldLen bounds every length prefix; anything larger is corruption.
const maxFieldLen = 1 << 20

func encodeTrackRecord(record *domain.TrackRecord) []byte {
	var buf bytes.Buffer
	buf.WriteByte(recordVersion)
	writeString(&buf, record.Name)
	writeString(&buf, record.Album)
	writeUint32(&buf, uint32(len(record.Artists)))
	for _, artist := range record.Artists {
		writeString(&buf, artist)
	}
	writeInt32(&buf, record.Number)
	writeInt32(&buf, record.DiscNumber)
	writeInt32(&buf, record.DurationMs)
	writeInt32(&buf, record.Popularity)
	writeBool(&buf, record.Explicit)
	writeFileRefs(&buf, record.Files)
	return buf.Bytes()
}

func decodeTrackRecord(data []byte) (*domain.TrackRecord, error) {
	d := &decoder{buf: data}
	if v := d.readByte(); v != recordVersion {
		return nil, fmt.Errorf("unsupported record version %d", v)
	}

	var record domain.TrackRecord
	record.Name = d.readString()
	record.Album = d.readString()
	n := d.readUint32()
	for i := uint32(0); i < n && d.err == nil; i++ {
		record.Artists = append(record.Artists, d.readString())
	}
	record.Number = d.readInt32()
	record.DiscNumber = d.readInt32()
	record.DurationMs = d.readInt32()
	record.Popularity = d.readInt32()
	record.Explicit = d.readBool()
	record.Files = d.readFileRefs()

	if err := d.finish(); err != nil {
		return nil, err
	}
	return &record, nil
}

func encodeEpisodeRecord(record *domain.EpisodeRecord) []byte {
	var buf bytes.Buffer
	buf.WriteByte(recordVersion)
	writeString(&buf, record.Name)
	writeString(&buf, record.Show)
	writeInt32(&buf, record.DurationMs)
	writeBool(&buf, record.Explicit)
	writeFileRefs(&buf, record.Files)
	return buf.Bytes()
}

func decodeEpisodeRecord(data []byte) (*domain.EpisodeRecord, error) {
	d := &decoder{buf: data}
	if v := d.readByte(); v != recordVersion {
		return nil, fmt.Errorf("unsupported record version %d", v)
	}

	var record domain.EpisodeRecord
	record.Name = d.readString()
	record.Show = d.readString()
	record.DurationMs = d.readInt32()
	record.Explicit = d.readBool()
	record.Files = d.readFileRefs()

	if err := d.finish(); err != nil {
		return nil, err
	}
	return &record, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) {
	writeUint32(buf, uint32(v))
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func writeFileRefs(buf *bytes.Buffer, files []domain.AudioFileRef) {
	writeUint32(buf, uint32(len(files)))
	for _, f := range files {
		buf.Write(f.ID[:])
		buf.WriteByte(byte(f.Format))
	}
}

// decoder reads the length-prefixed format, latching the first error.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.buf) {
		d.err = fmt.Errorf("record truncated: need %d bytes, have %d", n, len(d.buf))
		return nil
	}
	out := d.buf[:n]
	d.buf = d.buf[n:]
	return out
}

func (d *decoder) readByte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) readUint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	v := binary.BigEndian.Uint32(b)
	if v > maxFieldLen {
		d.err = fmt.Errorf("record field length %d exceeds limit", v)
		return 0
	}
	return v
}

func (d *decoder) readInt32() int32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (d *decoder) readBool() bool {
	return d.readByte() != 0
}

func (d *decoder) readString() string {
	n := d.readUint32()
	return string(d.take(int(n)))
}

func (d *decoder) readFileRefs() []domain.AudioFileRef {
	n := d.readUint32()
	var files []domain.AudioFileRef
	for i := uint32(0); i < n && d.err == nil; i++ {
		raw := d.take(20)
		format := d.readByte()
		if d.err != nil {
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

// finish reports the latched error, or a trailing-garbage error when the
// record has leftover bytes.
func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.buf) != 0 {
		return fmt.Errorf("record has %d trailing bytes", len(d.buf))
	}
	return nil
}
