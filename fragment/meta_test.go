package fragment

import (
	"errors"
	"testing"

	"arraydb/vfs"
)

func newTestVFS(t *testing.T) *vfs.VFS {
	t.Helper()
	v, err := vfs.New(vfs.Options{ReadConcurrency: 2})
	if err != nil {
		t.Fatalf("vfs.New failed: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v
}

func TestMetaRoundTrip(t *testing.T) {
	v := newTestVFS(t)
	dir := "mem://arrays/grid/__fragments/frag_001"

	m := NewMeta("frag_001", 100)
	m.SetTileSize("val", 0, TileSize{BytesFixed: 4000})
	m.SetTileSize("val", 3, TileSize{BytesFixed: 2000})
	m.SetTileSize("tags", 0, TileSize{BytesFixed: 800, BytesVar: 9000})

	if err := m.Write(v, dir); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Load(v, dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.FragmentID != "frag_001" {
		t.Errorf("FragmentID = %q, expected frag_001", loaded.FragmentID)
	}
	if loaded.TileCount != 100 {
		t.Errorf("TileCount = %d, expected 100", loaded.TileCount)
	}

	t.Run("Bitmaps", func(t *testing.T) {
		bm := loaded.NonEmpty("val")
		if bm == nil {
			t.Fatal("missing bitmap for val")
		}
		if !bm.Contains(0) || !bm.Contains(3) || bm.Contains(1) {
			t.Errorf("bitmap contents wrong: %v", bm.ToArray())
		}
		if loaded.NonEmpty("missing") != nil {
			t.Error("expected nil bitmap for unknown attribute")
		}
	})

	t.Run("TileStats", func(t *testing.T) {
		size, ok := loaded.TileSizeOf("val", 3)
		if !ok {
			t.Fatal("missing tile stat for val/3")
		}
		if size.BytesFixed != 2000 {
			t.Errorf("BytesFixed = %d, expected 2000", size.BytesFixed)
		}
		size, ok = loaded.TileSizeOf("tags", 0)
		if !ok {
			t.Fatal("missing tile stat for tags/0")
		}
		if size.BytesFixed != 800 || size.BytesVar != 9000 {
			t.Errorf("tags/0 = %+v, expected {800 9000}", size)
		}
		if _, ok := loaded.TileSizeOf("val", 7); ok {
			t.Error("unexpected tile stat for empty tile")
		}
	})
}

func TestMetaRejectsCorruptFiles(t *testing.T) {
	v := newTestVFS(t)
	dir := "mem://arrays/grid/__fragments/frag_bad"

	t.Run("BadMagic", func(t *testing.T) {
		if err := v.Write(dir+"/"+MetaFileName, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := Load(v, dir); !errors.Is(err, ErrInvalidMagicNumber) {
			t.Errorf("expected ErrInvalidMagicNumber, got %v", err)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		m := NewMeta("frag_bad", 10)
		m.SetTileSize("val", 0, TileSize{BytesFixed: 100})
		data, err := m.encodeMetaFile()
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		if err := v.Write(dir+"/"+MetaFileName, data[:len(data)-4]); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if _, err := Load(v, dir); err == nil {
			t.Error("expected truncated metadata to fail")
		}
	})
}
