package fragment

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/parquet-go/parquet-go"

	"arraydb/vfs"
)

// TileStatRow is one row of the tile stats parquet file.
type TileStatRow struct {
	Attribute  string `parquet:"attribute"`
	Tile       uint64 `parquet:"tile"`
	BytesFixed uint64 `parquet:"bytes_fixed"`
	BytesVar   uint64 `parquet:"bytes_var"`
}

// encodeTileStats serializes the per-tile stats as a parquet file, rows
// ordered by attribute then tile.
func (m *Meta) encodeTileStats() ([]byte, error) {
	var rows []TileStatRow
	for _, attr := range m.attrNames() {
		stats := m.tileStats[attr]
		tiles := make([]uint64, 0, len(stats))
		for tile := range stats {
			tiles = append(tiles, tile)
		}
		sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })
		for _, tile := range tiles {
			size := stats[tile]
			rows = append(rows, TileStatRow{
				Attribute:  attr,
				Tile:       tile,
				BytesFixed: size.BytesFixed,
				BytesVar:   size.BytesVar,
			})
		}
	}

	buf := new(bytes.Buffer)
	writer := parquet.NewGenericWriter[TileStatRow](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("writing tile stats rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing tile stats writer: %w", err)
	}
	return buf.Bytes(), nil
}

// loadTileStats reads the tile stats parquet file from the fragment
// directory. Works against any VFS backend that supports random access,
// including HTTP range readers.
func (m *Meta) loadTileStats(v *vfs.VFS, dir string) error {
	uri := joinURI(dir, TileStatsFileName)
	reader, size, err := v.OpenReaderAt(uri)
	if err != nil {
		return fmt.Errorf("opening tile stats: %w", err)
	}
	defer reader.Close()

	rows, err := parquet.Read[TileStatRow](reader, size)
	if err != nil {
		return fmt.Errorf("reading tile stats: %w", err)
	}
	for _, row := range rows {
		stats, ok := m.tileStats[row.Attribute]
		if !ok {
			stats = make(map[uint64]TileSize)
			m.tileStats[row.Attribute] = stats
		}
		stats[row.Tile] = TileSize{BytesFixed: row.BytesFixed, BytesVar: row.BytesVar}
	}
	return nil
}
