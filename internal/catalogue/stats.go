package catalogue

// Stats tracks per-variant and per-status counts while a catalogue is
// read or built, per spec.md §4.6; it backs both the `summary` output and
// the coordinator's overwrite/statistics reporting.
type Stats struct {
	Directories  uint64
	Files        uint64
	Symlinks     uint64
	CharDevices  uint64
	BlockDevices uint64
	Pipes        uint64
	Sockets      uint64
	Deleted      uint64
	HardLinks    uint64

	Saved    uint64
	NotSaved uint64
	Fake     uint64
	Deltas   uint64
}

// account folds one entry's contribution into s; called once per entry
// during insertion or read.
func (s *Stats) account(e Entry) {
	switch v := e.(type) {
	case *Directory:
		s.Directories++
	case *File:
		s.Files++
		s.accountSaved(v.Saved)
	case *Symlink:
		s.Symlinks++
		s.accountSaved(v.Saved)
	case *CharDevice:
		s.CharDevices++
		s.accountSaved(v.Saved)
	case *BlockDevice:
		s.BlockDevices++
		s.accountSaved(v.Saved)
	case *Pipe:
		s.Pipes++
		s.accountSaved(v.Saved)
	case *Socket:
		s.Sockets++
		s.accountSaved(v.Saved)
	case *Deleted:
		s.Deleted++
	case *HardLinkRef:
		s.HardLinks++
	}
}

func (s *Stats) accountSaved(status SavedStatus) {
	switch status {
	case Saved:
		s.Saved++
	case NotSaved, InodeOnly:
		s.NotSaved++
	case Fake:
		s.Fake++
	case Delta:
		s.Deltas++
	}
}
