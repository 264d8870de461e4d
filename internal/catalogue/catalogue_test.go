package catalogue

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edrusb/DAR-sub001/internal/crc"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
)

func sampleMeta(name string) Meta {
	return Meta{
		Name:  name,
		UID:   1000,
		GID:   100,
		Perm:  0644,
		MTime: time.Unix(1700000000, 0).UTC(),
		CTime: time.Unix(1700000001, 0).UTC(),
		ATime: time.Unix(1700000002, 0).UTC(),
	}
}

// buildSample constructs a small tree covering a regular file, a
// directory, a symlink and a device entry, exercising the multi-field
// WriteTo/ReadCatalogue round trip of spec.md §3.
func buildSample(t *testing.T) *Catalogue {
	t.Helper()
	c := New(label.MustGenerate())

	require.NoError(t, c.Insert(nil, &Directory{M: sampleMeta("sub")}))
	require.NoError(t, c.Insert([]string{"sub"}, &File{
		M:               sampleMeta("a.txt"),
		Saved:           Saved,
		Source:          SourceArchive,
		Offset:          infinint.New(128),
		StoredSize:      infinint.New(64),
		OriginalSize:    infinint.New(64),
		CompressionUsed: 0,
		CRC:             crc.Sum([]byte("hello world")),
	}))
	require.NoError(t, c.Insert(nil, &Symlink{
		M:      sampleMeta("link"),
		Saved:  Saved,
		Target: "sub/a.txt",
	}))
	require.NoError(t, c.Insert(nil, &CharDevice{
		M:     sampleMeta("ttyS0"),
		Saved: Saved,
		Major: 4,
		Minor: 64,
	}))
	return c
}

func TestCatalogueWriteReadRoundTrip(t *testing.T) {
	c := buildSample(t)

	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadCatalogue(&buf, c.DataName)
	require.NoError(t, err)
	require.True(t, got.DataName.Equal(c.DataName))

	require.Len(t, got.Root.Children, 3)

	dir, ok := got.Root.Children[0].(*Directory)
	require.True(t, ok, "first child should be the sub directory")
	assert.Equal(t, "sub", dir.M.Name)
	require.Len(t, dir.Children, 1)

	file, ok := dir.Children[0].(*File)
	require.True(t, ok, "sub/a.txt should round-trip as a File")
	assert.Equal(t, "a.txt", file.M.Name)
	assert.Equal(t, uint32(1000), file.M.UID)
	assert.Equal(t, uint64(64), file.StoredSize.Unstack())
	assert.Equal(t, uint64(64), file.OriginalSize.Unstack())
	assert.True(t, file.CRC.Equal(crc.Sum([]byte("hello world"))))

	link, ok := got.Root.Children[1].(*Symlink)
	require.True(t, ok, "link should round-trip as a Symlink")
	assert.Equal(t, "sub/a.txt", link.Target)

	dev, ok := got.Root.Children[2].(*CharDevice)
	require.True(t, ok, "ttyS0 should round-trip as a CharDevice")
	assert.Equal(t, uint32(4), dev.Major)
	assert.Equal(t, uint32(64), dev.Minor)
}

func TestCatalogueLookup(t *testing.T) {
	c := buildSample(t)
	e, ok := c.Lookup([]string{"sub"}, "a.txt")
	require.True(t, ok)
	assert.Equal(t, KindFile, e.Kind())

	_, ok = c.Lookup(nil, "does-not-exist")
	assert.False(t, ok)
}

// TestCatalogueHardLinkDedup exercises spec.md §3's hardlink tagging: two
// HardLinkRef entries sharing one InodeHolder must serialize the shared
// inode body exactly once and both resolve back to it on read.
func TestCatalogueHardLinkDedup(t *testing.T) {
	c := New(label.MustGenerate())
	holder := c.NewHolder(&File{
		M:            sampleMeta("real"),
		Saved:        Saved,
		Source:       SourceArchive,
		StoredSize:   infinint.New(8),
		OriginalSize: infinint.New(8),
		CRC:          crc.Sum([]byte("inode!!!")),
	})
	require.NoError(t, c.Insert(nil, &HardLinkRef{M: sampleMeta("first"), Holder: holder.Ref()}))
	require.NoError(t, c.Insert(nil, &HardLinkRef{M: sampleMeta("second"), Holder: holder.Ref()}))

	var buf bytes.Buffer
	_, err := c.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadCatalogue(&buf, c.DataName)
	require.NoError(t, err)
	require.Len(t, got.Root.Children, 2)

	first, ok := got.Root.Children[0].(*HardLinkRef)
	require.True(t, ok)
	second, ok := got.Root.Children[1].(*HardLinkRef)
	require.True(t, ok)
	assert.Same(t, first.Holder.Inode, second.Holder.Inode, "both refs should share one deduped inode")
}

// TestCatalogueUpdateDestroyedWith exercises update_destroyed_with
// (spec.md §4.6): a file present in ref but gone from cur must gain a
// Deleted marker, files present on both sides must not, and a second
// call against the same ref must be a no-op (idempotent).
func TestCatalogueUpdateDestroyedWith(t *testing.T) {
	ref := New(label.MustGenerate())
	require.NoError(t, ref.Insert(nil, &File{M: sampleMeta("kept.txt"), Saved: Saved, Source: SourceArchive}))
	require.NoError(t, ref.Insert(nil, &File{M: sampleMeta("gone.txt"), Saved: Saved, Source: SourceArchive}))
	require.NoError(t, ref.Insert(nil, &Directory{M: sampleMeta("sub")}))
	require.NoError(t, ref.Insert([]string{"sub"}, &File{M: sampleMeta("nested-gone.txt"), Saved: Saved, Source: SourceArchive}))

	cur := New(label.MustGenerate())
	require.NoError(t, cur.Insert(nil, &File{M: sampleMeta("kept.txt"), Saved: Saved, Source: SourceArchive}))
	require.NoError(t, cur.Insert(nil, &Directory{M: sampleMeta("sub")}))

	added := cur.UpdateDestroyedWith(ref)
	assert.Equal(t, 2, added, "gone.txt and sub/nested-gone.txt should each get a Deleted marker")

	_, ok := cur.Root.Find("gone.txt").(*Deleted)
	assert.True(t, ok, "gone.txt should now be a Deleted marker")

	_, ok = cur.Root.Find("kept.txt").(*File)
	assert.True(t, ok, "kept.txt should be untouched")

	subDir, ok := cur.Root.Find("sub").(*Directory)
	require.True(t, ok)
	_, ok = subDir.Find("nested-gone.txt").(*Deleted)
	assert.True(t, ok, "sub/nested-gone.txt should now be a Deleted marker")

	againAdded := cur.UpdateDestroyedWith(ref)
	assert.Equal(t, 0, againAdded, "a repeat call against the same ref should find the Deleted markers already there and add nothing")
}

// TestCatalogueUpdateAbsentWith exercises update_absent_with (spec.md
// §4.6): entries ref has that cur never visited are cloned in as
// not_saved, whole untouched subtrees are populated recursively, and
// entries already present in cur are left alone.
func TestCatalogueUpdateAbsentWith(t *testing.T) {
	ref := New(label.MustGenerate())
	require.NoError(t, ref.Insert(nil, &File{
		M:            sampleMeta("seen.txt"),
		Saved:        Saved,
		Source:       SourceArchive,
		OriginalSize: infinint.New(10),
	}))
	require.NoError(t, ref.Insert(nil, &File{
		M:            sampleMeta("missed.txt"),
		Saved:        Saved,
		Source:       SourceArchive,
		OriginalSize: infinint.New(20),
	}))
	require.NoError(t, ref.Insert(nil, &Directory{M: sampleMeta("untouched")}))
	require.NoError(t, ref.Insert([]string{"untouched"}, &File{
		M:            sampleMeta("deep.txt"),
		Saved:        Saved,
		Source:       SourceArchive,
		OriginalSize: infinint.New(30),
	}))

	cur := New(label.MustGenerate())
	require.NoError(t, cur.Insert(nil, &File{
		M:            sampleMeta("seen.txt"),
		Saved:        Saved,
		Source:       SourceArchive,
		OriginalSize: infinint.New(10),
	}))

	added := cur.UpdateAbsentWith(ref)
	assert.Equal(t, 3, added, "missed.txt, untouched/, and untouched/deep.txt should all be cloned in")

	seen, ok := cur.Root.Find("seen.txt").(*File)
	require.True(t, ok)
	assert.Equal(t, Saved, seen.Saved, "seen.txt was already visited and must be left untouched")

	missed, ok := cur.Root.Find("missed.txt").(*File)
	require.True(t, ok)
	assert.Equal(t, NotSaved, missed.Saved, "missed.txt must be demoted to not_saved")
	assert.Equal(t, uint64(20), missed.OriginalSize.Unstack(), "size should still be recorded even though the body was never visited")

	untouched, ok := cur.Root.Find("untouched").(*Directory)
	require.True(t, ok)
	require.Len(t, untouched.Children, 1)
	deep, ok := untouched.Children[0].(*File)
	require.True(t, ok)
	assert.Equal(t, "deep.txt", deep.M.Name)
	assert.Equal(t, NotSaved, deep.Saved, "a whole subtree cur never visited must be populated as not_saved")
}
