package catalogue

// SavedStatus is the per-file saved-status named in spec.md §3.
type SavedStatus byte

const (
	Saved     SavedStatus = iota // data present in this archive
	NotSaved                     // only metadata, referenced from a previous archive
	Fake                          // isolated catalogue placeholder
	Delta                         // archive contains a binary patch against a previous saved state
	InodeOnly                     // metadata-only change
	Removed
)

// EAStatus is the per-file extended-attribute saved-status named in
// spec.md §3.
type EAStatus byte

const (
	EANone    EAStatus = iota // no EA recorded
	EAPartial                 // metadata only
	EAFake                    // placeholder
	EAFull                    // data present
)
