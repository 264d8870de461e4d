// Command dar is the thin CLI front-end over internal/engine, explicitly
// out of scope for behavior per spec.md §1 ("CLI parsing, argument
// sanity plumbing, localized message strings" are external collaborators).
// It follows cmd/sqfs/main.go's shape: a bare os.Args dispatch plus one
// flag.FlagSet per subcommand, no CLI framework (see SPEC_FULL.md §1).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Edrusb/DAR-sub001/internal/catalogue"
	"github.com/Edrusb/DAR-sub001/internal/engine"
	"github.com/Edrusb/DAR-sub001/internal/fsadapter"
	"github.com/Edrusb/DAR-sub001/internal/fuseview"
	"github.com/Edrusb/DAR-sub001/internal/infinint"
	"github.com/Edrusb/DAR-sub001/internal/label"
	"github.com/Edrusb/DAR-sub001/internal/stream"
)

const usage = `dar - disk archive backup engine

Usage:
  dar create  -R <root> -o <basename> [-S <slice-size>] [-z <algo>] [-ref <basename>]
  dar extract -o <basename> -R <root>
  dar list    -o <basename>
  dar diff    -o <basename> -R <root>
  dar test    -o <basename>
  dar isolate -o <basename> -out <isolated-basename>
  dar fuse-mount -o <basename> <mountpoint>
  dar help
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "diff":
		err = runDiff(os.Args[2:])
	case "test":
		err = runTest(os.Args[2:])
	case "isolate":
		err = runIsolate(os.Args[2:])
	case "fuse-mount":
		err = runFuseMount(os.Args[2:])
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dar: %s\n", err)
		os.Exit(1)
	}
}

// compressionAlgo maps the CLI's short names to stream.CompressAlgo,
// mirroring comp.go's SquashComp string table.
func compressionAlgo(name string) (stream.CompressAlgo, error) {
	switch name {
	case "", "none":
		return stream.CompressNone, nil
	case "gzip":
		return stream.CompressGZip, nil
	case "bzip2":
		return stream.CompressBZip2, nil
	case "lzo":
		return stream.CompressLZO, nil
	case "xz":
		return stream.CompressXZ, nil
	case "zstd":
		return stream.CompressZSTD, nil
	case "lz4":
		return stream.CompressLZ4, nil
	default:
		return stream.CompressNone, fmt.Errorf("unknown compression algorithm %q", name)
	}
}

func archiveParams(basename string, sliceSizeMB int, compAlgo stream.CompressAlgo, tapeMarks bool) engine.ArchiveParams {
	p := engine.ArchiveParams{
		Path:        ".",
		Basename:    basename,
		Extension:   "dar",
		MinDigits:   1,
		Compression: compAlgo,
		TapeMarks:   tapeMarks,
		AllowOver:   false,
	}
	if sliceSizeMB > 0 {
		p.FirstSliceSize = infinint.New(uint64(sliceSizeMB) * 1024 * 1024)
		p.OtherSliceSize = p.FirstSliceSize
	}
	return p
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	root := fs.String("R", ".", "root directory to back up")
	basename := fs.String("o", "", "archive basename (required)")
	sliceMB := fs.Int("S", 0, "slice size in MiB, 0 = single slice")
	comp := fs.String("z", "none", "compression algorithm: none|gzip|bzip2|lzo|xz|zstd|lz4")
	ref := fs.String("ref", "", "reference archive basename for a differential backup")
	tapeMarks := fs.Bool("sequential-marks", true, "write escape marks enabling sequential read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" {
		return fmt.Errorf("create: -o is required")
	}
	algo, err := compressionAlgo(*comp)
	if err != nil {
		return err
	}

	co := engine.New()
	var reference *catalogue.Catalogue
	if *ref != "" {
		refCo := engine.New()
		if err := refCo.Open(engine.OpenOptions{Archive: archiveParams(*ref, 0, stream.CompressNone, true)}); err != nil {
			return fmt.Errorf("opening reference archive: %w", err)
		}
		reference = refCo.Catalogue
	}

	params := archiveParams(*basename, *sliceMB, algo, *tapeMarks)
	in, err := label.Generate()
	if err != nil {
		return err
	}
	params.InternalName = in
	params.DataName = in

	walker := &fsadapter.OS{Root: *root}
	_, err = co.Create(walker, engine.CreateOptions{
		Archive:   params,
		Reference: reference,
		Fetch:     fsadapter.Fetch,
	})
	if err != nil {
		return err
	}
	fmt.Printf("treated=%d errored=%d bytes=%d\n", co.Stats.Treated, co.Stats.Errored, co.Stats.Bytes)
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	basename := fs.String("o", "", "archive basename (required)")
	root := fs.String("R", ".", "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" {
		return fmt.Errorf("extract: -o is required")
	}

	co := engine.New()
	if err := co.Open(engine.OpenOptions{Archive: archiveParams(*basename, 0, stream.CompressNone, true)}); err != nil {
		return err
	}
	dst := &fsadapter.OS{Root: *root}
	if err := os.MkdirAll(*root, 0755); err != nil {
		return err
	}
	if err := co.Extract(dst, engine.ExtractOptions{}); err != nil {
		return err
	}
	fmt.Printf("treated=%d skipped=%d errored=%d bytes=%d\n", co.Stats.Treated, co.Stats.Skipped, co.Stats.Errored, co.Stats.Bytes)
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	basename := fs.String("o", "", "archive basename (required)")
	format := fs.String("fmt", "plain", "listing format: plain|tree|xml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" {
		return fmt.Errorf("list: -o is required")
	}

	co := engine.New()
	if err := co.Open(engine.OpenOptions{Archive: archiveParams(*basename, 0, stream.CompressNone, true)}); err != nil {
		return err
	}
	var lf engine.ListFormat
	switch *format {
	case "tree":
		lf = engine.ListTree
	case "xml":
		lf = engine.ListXML
	default:
		lf = engine.ListPlain
	}
	return co.List(os.Stdout, lf)
}

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	basename := fs.String("o", "", "archive basename (required)")
	root := fs.String("R", ".", "directory to compare against")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" {
		return fmt.Errorf("diff: -o is required")
	}

	co := engine.New()
	if err := co.Open(engine.OpenOptions{Archive: archiveParams(*basename, 0, stream.CompressNone, true)}); err != nil {
		return err
	}
	dst := &fsadapter.OS{Root: *root}
	res, err := co.Diff(dst, engine.DiffOptions{Fields: engine.CompareFields{MTime: true}})
	if err != nil {
		return err
	}
	fmt.Printf("matched=%d mismatched=%d\n", res.Matched, len(res.Mismatched))
	for _, m := range res.Mismatched {
		fmt.Println("  " + m)
	}
	return nil
}

func runTest(args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	basename := fs.String("o", "", "archive basename (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" {
		return fmt.Errorf("test: -o is required")
	}

	co := engine.New()
	if err := co.Open(engine.OpenOptions{Archive: archiveParams(*basename, 0, stream.CompressNone, true), Sequential: true}); err != nil {
		return err
	}
	stats, err := co.Test(engine.TestOptions{})
	if err != nil {
		return err
	}
	fmt.Printf("treated=%d errored=%d\n", stats.Treated, stats.Errored)
	return nil
}

func runIsolate(args []string) error {
	fs := flag.NewFlagSet("isolate", flag.ExitOnError)
	basename := fs.String("o", "", "source archive basename (required)")
	out := fs.String("out", "", "isolated archive basename (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" || *out == "" {
		return fmt.Errorf("isolate: -o and -out are required")
	}

	co := engine.New()
	if err := co.Open(engine.OpenOptions{Archive: archiveParams(*basename, 0, stream.CompressNone, true)}); err != nil {
		return err
	}
	return co.Isolate(engine.IsolateOptions{Archive: archiveParams(*out, 0, stream.CompressNone, true)})
}

// runFuseMount is a debug helper (SPEC_FULL.md §2): it mounts an
// already-open archive read-only at mountpoint via internal/fuseview, so
// its tree can be browsed with ordinary file tools instead of dar's own
// list/extract commands. It blocks until the mount is unmounted
// (fusermount -u <mountpoint> or ctrl-C).
func runFuseMount(args []string) error {
	fs := flag.NewFlagSet("fuse-mount", flag.ExitOnError)
	basename := fs.String("o", "", "archive basename (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *basename == "" {
		return fmt.Errorf("fuse-mount: -o is required")
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("fuse-mount: a mountpoint argument is required")
	}
	mountpoint := fs.Arg(0)

	co := engine.New()
	if err := co.Open(engine.OpenOptions{Archive: archiveParams(*basename, 0, stream.CompressNone, true)}); err != nil {
		return err
	}
	server, err := fuseview.Mount(mountpoint, co.Catalogue, co)
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", mountpoint, err)
	}
	fmt.Printf("mounted %s.%s at %s, unmount with fusermount -u %s\n", *basename, "dar", mountpoint, mountpoint)
	server.Wait()
	return nil
}
