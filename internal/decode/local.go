package decode

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/isaaclins/psst/internal/domain"
)

// ProbeLocal builds a metadata record for a local audio file from its
// embedded tags. Files without tags fall back to the file name; the probe
// never fails on tag problems, only on I/O.
func ProbeLocal(path string) (*domain.TrackRecord, error) {
	record := &domain.TrackRecord{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewTransportError("probe_local", path, err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return record, nil
	}

	if title := meta.Title(); title != "" {
		record.Name = title
	}
	record.Album = meta.Album()
	if artist := meta.Artist(); artist != "" {
		record.Artists = []string{artist}
	}
	number, _ := meta.Track()
	record.Number = int32(number)
	disc, _ := meta.Disc()
	record.DiscNumber = int32(disc)
	return record, nil
}
