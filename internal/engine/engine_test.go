package engine_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/engine"
	"github.com/Edrusb/DAR-sub001/internal/fsadapter"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

func writeFile(t *testing.T, path string, data []byte, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// TestScenarioACreateOpenExtract covers spec.md §8 Scenario A: a small
// tree with a regular file, an empty file and a symlink, archived with
// no compression/cipher, a 4096-byte slice and sequential marks enabled,
// then listed and restored byte-for-byte.
func TestScenarioACreateOpenExtract(t *testing.T) {
	srcRoot := t.TempDir()
	payload := bytes.Repeat([]byte("A"), 100)
	mtime := time.Unix(1700000000, 0).UTC()
	writeFile(t, filepath.Join(srcRoot, "a"), payload, mtime)
	writeFile(t, filepath.Join(srcRoot, "sub", "b"), nil, mtime)
	require.NoError(t, os.Symlink("../a", filepath.Join(srcRoot, "sub", "c")))

	archiveDir := t.TempDir()
	params := engine.ArchiveParams{
		Path:           archiveDir,
		Basename:       "scenario-a",
		Extension:      "dar",
		MinDigits:      1,
		FirstSliceSize: infinint.New(4096),
		OtherSliceSize: infinint.New(4096),
		TapeMarks:      true,
		Compression:    stream.CompressNone,
		Cipher:         stream.CipherNone,
		InternalName:   label.MustGenerate(),
		DataName:       label.MustGenerate(),
	}

	co := engine.New()
	cat, err := co.Create(&fsadapter.OS{Root: srcRoot}, engine.CreateOptions{
		Archive: params,
		Fetch:   fsadapter.Fetch,
	})
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, uint64(0), co.Stats.Errored)

	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	var slices int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "scenario-a.") {
			slices++
			info, err := e.Info()
			require.NoError(t, err)
			assert.LessOrEqual(t, info.Size(), int64(4096), "a 100-byte payload under a 4096-byte slice size should fit in one slice")
		}
	}
	assert.Equal(t, 1, slices, "the whole archive should fit in a single slice")

	reader := engine.New()
	require.NoError(t, reader.Open(engine.OpenOptions{Archive: params, Sequential: true}))
	require.False(t, reader.Isolated)

	require.Len(t, reader.Catalogue.Root.Children, 2, "root should list exactly \"a\" and \"sub\"")
	sub, ok := reader.Catalogue.Root.Find("sub").(*catalogue.Directory)
	require.True(t, ok)
	assert.Len(t, sub.Children, 2, "sub should list exactly \"b\" and \"c\"")

	dstRoot := t.TempDir()
	err = reader.Extract(&fsadapter.OS{Root: dstRoot}, engine.ExtractOptions{})
	require.NoError(t, err)

	gotA, err := os.ReadFile(filepath.Join(dstRoot, "a"))
	require.NoError(t, err)
	assert.Equal(t, payload, gotA, "restored \"a\" must match the original 100 bytes")

	infoB, err := os.Stat(filepath.Join(dstRoot, "sub", "b"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), infoB.Size())

	target, err := os.Readlink(filepath.Join(dstRoot, "sub", "c"))
	require.NoError(t, err)
	assert.Equal(t, "../a", target, "restored symlink must keep its original target")
}

// TestScenarioFMergePreserveNewer covers spec.md §8 Scenario F: merging
// two archives under PreserveNewerPolicy keeps the newer side's file
// regardless of which side is passed as Left and which as Right.
func TestScenarioFMergePreserveNewer(t *testing.T) {
	older := time.Unix(1700000010, 0).UTC()
	newer := time.Unix(1700000020, 0).UTC()

	xRoot := t.TempDir()
	writeFile(t, filepath.Join(xRoot, "f"), []byte("older contents"), older)
	yRoot := t.TempDir()
	writeFile(t, filepath.Join(yRoot, "f"), []byte("newer contents, from Y"), newer)

	openArchive := func(root, basename string) *engine.Coordinator {
		archiveDir := t.TempDir()
		params := engine.ArchiveParams{
			Path:         archiveDir,
			Basename:     basename,
			Extension:    "dar",
			MinDigits:    1,
			Compression:  stream.CompressNone,
			Cipher:       stream.CipherNone,
			InternalName: label.MustGenerate(),
			DataName:     label.MustGenerate(),
		}
		writer := engine.New()
		_, err := writer.Create(&fsadapter.OS{Root: root}, engine.CreateOptions{
			Archive: params,
			Fetch:   fsadapter.Fetch,
		})
		require.NoError(t, err)
		params.CatalogueOffset = writer.CatalogueOffset

		reader := engine.New()
		require.NoError(t, reader.Open(engine.OpenOptions{Archive: params}))
		return reader
	}

	coX := openArchive(xRoot, "x")
	coY := openArchive(yRoot, "y")

	mergeAndReadF := func(left, right *engine.Coordinator, basename string) []byte {
		mergeDir := t.TempDir()
		out := engine.ArchiveParams{
			Path:         mergeDir,
			Basename:     basename,
			Extension:    "dar",
			MinDigits:    1,
			Compression:  stream.CompressNone,
			Cipher:       stream.CipherNone,
			InternalName: label.MustGenerate(),
			DataName:     label.MustGenerate(),
		}
		merger := engine.New()
		_, err := merger.Merge(engine.MergeOptions{
			Left:   left,
			Right:  right,
			Policy: catalogue.PreserveNewerPolicy(),
			Output: out,
		})
		require.NoError(t, err)
		out.CatalogueOffset = merger.CatalogueOffset

		reader := engine.New()
		require.NoError(t, reader.Open(engine.OpenOptions{Archive: out}))

		dst := t.TempDir()
		require.NoError(t, reader.Extract(&fsadapter.OS{Root: dst}, engine.ExtractOptions{}))
		data, err := os.ReadFile(filepath.Join(dst, "f"))
		require.NoError(t, err)
		return data
	}

	gotYX := mergeAndReadF(coY, coX, "merged-yx")
	assert.Equal(t, "newer contents, from Y", string(gotYX))

	gotXY := mergeAndReadF(coX, coY, "merged-xy")
	assert.Equal(t, "newer contents, from Y", string(gotXY), "swapping Left/Right must not change which side's mtime wins")
}
