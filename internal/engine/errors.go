package engine

import "errors"

var (
	errCancelled   = errors.New("dar: operation cancelled by user request")
	errNoReference = errors.New("dar: operation requires a reference catalogue")
	errNotOpen     = errors.New("dar: coordinator has no archive open")
	// errIsolated is the stable message of spec.md §6.3: "Archive of
	// reference given is not exploitable", raised when Extract/Diff/Test
	// is attempted against an isolated catalogue (data_name mismatch
	// between the first layer and the catalogue itself, per §3).
	errIsolated = errors.New("dar: Archive of reference given is not exploitable")
)
