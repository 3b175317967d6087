package fragment

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/golang/snappy"

	"arraydb/trace"
	"arraydb/vfs"
)

// Constants
const (
	MagicNumber  = 0x41524442 // "ARDB"
	MajorVersion = 1
	MinorVersion = 0

	// Files inside a fragment directory
	MetaFileName      = "__fragment_meta.bin"
	TileStatsFileName = "__tile_stats.parquet"
)

// Errors
var (
	ErrInvalidMagicNumber = errors.New("invalid fragment magic number")
	ErrInvalidVersion     = errors.New("unsupported fragment version")
	ErrCorruptMeta        = errors.New("corrupt fragment metadata")
)

// ByteOrder is the byte order used for encoding
var ByteOrder = binary.LittleEndian

// TileSize is one tile's result footprint for one attribute: fixed cell
// bytes (or offset bytes for var-sized attributes) and var-sized value
// bytes.
type TileSize struct {
	BytesFixed uint64
	BytesVar   uint64
}

// metaHeader is the snappy-compressed JSON payload of the metadata file.
type metaHeader struct {
	FragmentID string    `json:"fragment_id"`
	TileCount  uint64    `json:"tile_count"`
	Attributes []string  `json:"attributes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Meta holds one fragment's partition-relevant metadata: which space tiles
// hold data per attribute, and how many result bytes each tile contributes.
type Meta struct {
	FragmentID string
	TileCount  uint64
	CreatedAt  time.Time

	nonEmpty  map[string]*roaring64.Bitmap
	tileStats map[string]map[uint64]TileSize
}

// NewMeta creates empty metadata for a fragment.
func NewMeta(fragmentID string, tileCount uint64) *Meta {
	return &Meta{
		FragmentID: fragmentID,
		TileCount:  tileCount,
		CreatedAt:  time.Now().UTC(),
		nonEmpty:   make(map[string]*roaring64.Bitmap),
		tileStats:  make(map[string]map[uint64]TileSize),
	}
}

// SetTileSize records a tile's footprint for an attribute and marks the
// tile non-empty.
func (m *Meta) SetTileSize(attr string, tile uint64, size TileSize) {
	bm, ok := m.nonEmpty[attr]
	if !ok {
		bm = roaring64.New()
		m.nonEmpty[attr] = bm
	}
	bm.Add(tile)

	stats, ok := m.tileStats[attr]
	if !ok {
		stats = make(map[uint64]TileSize)
		m.tileStats[attr] = stats
	}
	stats[tile] = size
}

// TileSizeOf returns the recorded footprint of a tile for an attribute.
func (m *Meta) TileSizeOf(attr string, tile uint64) (TileSize, bool) {
	stats, ok := m.tileStats[attr]
	if !ok {
		return TileSize{}, false
	}
	size, ok := stats[tile]
	return size, ok
}

// NonEmpty returns the non-empty tile bitmap of an attribute, or nil when
// the attribute holds no data in this fragment.
func (m *Meta) NonEmpty(attr string) *roaring64.Bitmap {
	return m.nonEmpty[attr]
}

// attrNames returns the attributes with recorded data, sorted.
func (m *Meta) attrNames() []string {
	names := make([]string, 0, len(m.nonEmpty))
	for name := range m.nonEmpty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Write persists the metadata file and the tile stats file into the
// fragment directory through the VFS.
func (m *Meta) Write(v *vfs.VFS, dir string) error {
	tracer := trace.GetTracer()
	tracer.Debug(trace.ComponentFragment, "writing fragment metadata",
		trace.Context("fragment", m.FragmentID, "dir", dir))

	data, err := m.encodeMetaFile()
	if err != nil {
		return err
	}
	if err := v.Write(joinURI(dir, MetaFileName), data); err != nil {
		return fmt.Errorf("writing fragment metadata: %w", err)
	}

	stats, err := m.encodeTileStats()
	if err != nil {
		return err
	}
	if err := v.Write(joinURI(dir, TileStatsFileName), stats); err != nil {
		return fmt.Errorf("writing tile stats: %w", err)
	}
	return nil
}

// Load reads a fragment's metadata and tile stats from its directory.
func Load(v *vfs.VFS, dir string) (*Meta, error) {
	metaURI := joinURI(dir, MetaFileName)
	info, err := v.Stat(metaURI)
	if err != nil {
		return nil, fmt.Errorf("locating fragment metadata: %w", err)
	}
	raw := make([]byte, info.Size)
	if err := v.Read(metaURI, 0, raw); err != nil {
		return nil, fmt.Errorf("reading fragment metadata: %w", err)
	}
	m, err := decodeMetaFile(raw)
	if err != nil {
		return nil, err
	}
	if err := m.loadTileStats(v, dir); err != nil {
		return nil, err
	}
	return m, nil
}

// encodeMetaFile lays the metadata out as a fixed header, a
// snappy-compressed JSON payload, and length-prefixed bitmap sections, one
// per attribute in payload order.
func (m *Meta) encodeMetaFile() ([]byte, error) {
	attrs := m.attrNames()
	payload, err := json.Marshal(metaHeader{
		FragmentID: m.FragmentID,
		TileCount:  m.TileCount,
		Attributes: attrs,
		CreatedAt:  m.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding fragment header: %w", err)
	}
	compressed := snappy.Encode(nil, payload)

	buf := new(bytes.Buffer)
	binary.Write(buf, ByteOrder, uint32(MagicNumber))
	binary.Write(buf, ByteOrder, uint16(MajorVersion))
	binary.Write(buf, ByteOrder, uint16(MinorVersion))
	binary.Write(buf, ByteOrder, uint32(len(compressed)))
	buf.Write(compressed)

	for _, attr := range attrs {
		var section bytes.Buffer
		if _, err := m.nonEmpty[attr].WriteTo(&section); err != nil {
			return nil, fmt.Errorf("encoding tile bitmap for %q: %w", attr, err)
		}
		binary.Write(buf, ByteOrder, uint32(section.Len()))
		buf.Write(section.Bytes())
	}
	return buf.Bytes(), nil
}

func decodeMetaFile(raw []byte) (*Meta, error) {
	r := bytes.NewReader(raw)

	var magic uint32
	var major, minor uint16
	var payloadLen uint32
	if err := binary.Read(r, ByteOrder, &magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}
	if magic != MagicNumber {
		return nil, ErrInvalidMagicNumber
	}
	if err := binary.Read(r, ByteOrder, &major); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}
	if err := binary.Read(r, ByteOrder, &minor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}
	if major != MajorVersion {
		return nil, fmt.Errorf("%w: %d.%d", ErrInvalidVersion, major, minor)
	}
	if err := binary.Read(r, ByteOrder, &payloadLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}

	compressed := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}
	var header metaHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
	}

	m := NewMeta(header.FragmentID, header.TileCount)
	m.CreatedAt = header.CreatedAt
	for _, attr := range header.Attributes {
		var sectionLen uint32
		if err := binary.Read(r, ByteOrder, &sectionLen); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
		}
		section := make([]byte, sectionLen)
		if _, err := io.ReadFull(r, section); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptMeta, err)
		}
		bm := roaring64.New()
		if _, err := bm.ReadFrom(bytes.NewReader(section)); err != nil {
			return nil, fmt.Errorf("%w: bitmap for %q: %v", ErrCorruptMeta, attr, err)
		}
		m.nonEmpty[attr] = bm
	}
	return m, nil
}

func joinURI(dir, name string) string {
	if len(dir) > 0 && dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}

