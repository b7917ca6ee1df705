// Package domain contains core value types and logic with no external dependencies.
// This package defines the fundamental entities of the psst streaming client.
package domain

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
	"sync"
)

// ItemIdType tags an ItemId with the kind of content it addresses.
type ItemIdType int

const (
	// ItemIdTypeUnknown is the tag of the invalid/default id.
	ItemIdTypeUnknown ItemIdType = iota

	// ItemIdTypeTrack addresses a music track.
	ItemIdTypeTrack

	// ItemIdTypePodcast addresses a podcast episode. URIs spell this type
	// "episode" on the way in and "podcast" on the way out.
	ItemIdTypePodcast

	// ItemIdTypeLocalFile addresses a file on the local filesystem.
	ItemIdTypeLocalFile
)

// String returns a human-readable representation of the id type.
func (t ItemIdType) String() string {
	switch t {
	case ItemIdTypeTrack:
		return "track"
	case ItemIdTypePodcast:
		return "podcast"
	case ItemIdTypeLocalFile:
		return "local_file"
	default:
		return "unknown"
	}
}

// ItemId is a 128-bit content identifier plus a type tag.
//
// The zero value (all-zero id, ItemIdTypeUnknown) is the canonical invalid
// sentinel. ItemIds are immutable value types; they are created by parsing
// one of the text forms or by hashing a local path, never mutated.
type ItemId struct {
	// Hi holds the most significant 64 bits of the 128-bit id.
	Hi uint64

	// Lo holds the least significant 64 bits of the 128-bit id.
	Lo uint64

	// Type is the content class of the id.
	Type ItemIdType
}

// InvalidItemId is the canonical invalid id. It equals the zero value.
var InvalidItemId = ItemId{}

// NewItemId creates an ItemId from the two 64-bit halves of its value.
func NewItemId(hi, lo uint64, t ItemIdType) ItemId {
	return ItemId{Hi: hi, Lo: lo, Type: t}
}

// base62Alphabet is the fixed alphabet used by the 22-character form.
// Its zero symbol is ASCII '0'.
const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// uriScheme is the scheme of the textual URI form.
const uriScheme = "spotify"

// ItemIdFromBase16 decodes a hexadecimal string into an ItemId.
//
// Decoding is case-insensitive and accepts only [0-9a-fA-F]; any other
// character yields no value. The empty string decodes to the zero id.
func ItemIdFromBase16(s string, t ItemIdType) (ItemId, bool) {
	var hi, lo uint64
	for i := 0; i < len(s); i++ {
		d, ok := hexDigit(s[i])
		if !ok {
			return InvalidItemId, false
		}
		hi = hi<<4 | lo>>60
		lo = lo<<4 | uint64(d)
	}
	return ItemId{Hi: hi, Lo: lo, Type: t}, true
}

// ToBase16 encodes the id as exactly 32 lowercase hexadecimal characters.
func (id ItemId) ToBase16() string {
	return fmt.Sprintf("%016x%016x", id.Hi, id.Lo)
}

// ItemIdFromBase62 decodes a base62 string into an ItemId.
//
// Only alphanumeric characters are accepted; any other character yields no
// value. The empty string decodes to the zero id.
func ItemIdFromBase62(s string, t ItemIdType) (ItemId, bool) {
	var hi, lo uint64
	for i := 0; i < len(s); i++ {
		d, ok := base62Digit(s[i])
		if !ok {
			return InvalidItemId, false
		}
		// value = value*62 + d over 128 bits
		carry, lo62 := bits.Mul64(lo, 62)
		hi = hi*62 + carry
		var c uint64
		lo, c = bits.Add64(lo62, uint64(d), 0)
		hi += c
	}
	return ItemId{Hi: hi, Lo: lo, Type: t}, true
}

// ToBase62 encodes the id as exactly 22 base62 characters, most significant
// digit first. The zero id encodes as 22 copies of the alphabet's zero
// symbol.
func (id ItemId) ToBase62() string {
	var buf [22]byte
	hi, lo := id.Hi, id.Lo
	for i := len(buf) - 1; i >= 0; i-- {
		q, r := hi/62, hi%62
		lo, r = bits.Div64(r, lo, 62)
		hi = q
		buf[i] = base62Alphabet[r]
	}
	return string(buf[:])
}

// ItemIdFromRaw decodes a 16-byte big-endian buffer into an ItemId.
// Any other length yields no value.
func ItemIdFromRaw(b []byte, t ItemIdType) (ItemId, bool) {
	if len(b) != 16 {
		return InvalidItemId, false
	}
	return ItemId{
		Hi:   binary.BigEndian.Uint64(b[:8]),
		Lo:   binary.BigEndian.Uint64(b[8:]),
		Type: t,
	}, true
}

// ToRaw encodes the id as a 16-byte big-endian buffer.
func (id ItemId) ToRaw() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:], id.Lo)
	return b
}

// ItemIdFromURI parses a `scheme:type:base62id` URI.
//
// The final `:`-separated segment is the base62 id and the segment before it
// names the type. "track" maps to ItemIdTypeTrack and "episode" to
// ItemIdTypePodcast; any other token maps to ItemIdTypeUnknown. The trailing
// segment is still run through base62 decoding, so a malformed non-base62
// segment yields no value while an empty segment decodes to the zero id.
func ItemIdFromURI(uri string) (ItemId, bool) {
	segments := strings.Split(uri, ":")
	idPart := segments[len(segments)-1]

	t := ItemIdTypeUnknown
	if len(segments) >= 2 {
		switch segments[len(segments)-2] {
		case "track":
			t = ItemIdTypeTrack
		case "episode":
			t = ItemIdTypePodcast
		}
	}
	return ItemIdFromBase62(idPart, t)
}

// ToURI encodes the id as a `spotify:track:…` or `spotify:podcast:…` URI.
//
// LocalFile and Unknown ids have no URI form and yield no value; it is
// meaningless to address them by this scheme.
func (id ItemId) ToURI() (string, bool) {
	switch id.Type {
	case ItemIdTypeTrack:
		return uriScheme + ":track:" + id.ToBase62(), true
	case ItemIdTypePodcast:
		return uriScheme + ":podcast:" + id.ToBase62(), true
	default:
		return "", false
	}
}

// localPaths maps LocalFile ids back to the paths they were derived from.
// Same path always hashes to the same id, so re-registration is idempotent.
var localPaths struct {
	sync.RWMutex
	m map[ItemId]string
}

// ItemIdFromLocal derives a LocalFile id by hashing a filesystem path.
//
// The hash is deterministic: the same path always yields the same id, and
// distinct paths yield distinct ids with overwhelming probability. The path
// is registered so ToLocal can recover it later in the same process.
func ItemIdFromLocal(path string) ItemId {
	sum := sha1.Sum([]byte(path))
	id := ItemId{
		Hi:   binary.BigEndian.Uint64(sum[:8]),
		Lo:   binary.BigEndian.Uint64(sum[8:16]),
		Type: ItemIdTypeLocalFile,
	}

	localPaths.Lock()
	if localPaths.m == nil {
		localPaths.m = make(map[ItemId]string)
	}
	localPaths.m[id] = path
	localPaths.Unlock()

	return id
}

// ToLocal returns the filesystem path a LocalFile id was derived from.
//
// Calling ToLocal on a non-LocalFile id is a programming error and panics.
func (id ItemId) ToLocal() string {
	if id.Type != ItemIdTypeLocalFile {
		panic(fmt.Sprintf("expected local file id, got %s", id.Type))
	}

	localPaths.RLock()
	path, ok := localPaths.m[id]
	localPaths.RUnlock()
	if !ok {
		panic("local file id was not derived in this process")
	}
	return path
}

// String returns the base62 form of the id.
func (id ItemId) String() string {
	return id.ToBase62()
}

// FileId identifies a specific encoded audio file on the CDN. It is a fixed
// 20-byte content hash.
type FileId [20]byte

// FileIdFromRaw constructs a FileId from raw bytes.
// Input of any length other than 20 bytes yields no value.
func FileIdFromRaw(b []byte) (FileId, bool) {
	var f FileId
	if len(b) != len(f) {
		return f, false
	}
	copy(f[:], b)
	return f, true
}

// FileIdFromBase16 decodes a 40-character hexadecimal string into a FileId.
func FileIdFromBase16(s string) (FileId, bool) {
	var f FileId
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(f) {
		return f, false
	}
	copy(f[:], b)
	return f, true
}

// ToBase16 encodes the FileId as 40 lowercase hexadecimal characters.
func (f FileId) ToBase16() string {
	return hex.EncodeToString(f[:])
}

// String returns the base16 form of the file id.
func (f FileId) String() string {
	return f.ToBase16()
}

// hexDigit decodes a single hexadecimal character.
func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// base62Digit decodes a single base62 character.
func base62Digit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 36, true
	default:
		return 0, false
	}
}
