package catalogue

// Side identifies which of the two catalogues being merged an entry (or
// its EA/FSA half) is taken from.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// MergeDecision is the result of a CritAction for one paired entry: data
// and EA/FSA are resolved independently, per spec.md §4.6.
type MergeDecision struct {
	Data Side
	EA   Side
}

// CritAction decides, for one name present in one or both merged
// directories, which side's data and which side's EA/FSA win. left or
// right may be nil when the name exists on only one side (Merge never
// calls CritAction in that case: the sole side always wins outright).
type CritAction func(left, right Entry) MergeDecision

// PreservePolicy always keeps the left (first) catalogue's definition.
func PreservePolicy() CritAction {
	return func(Entry, Entry) MergeDecision { return MergeDecision{SideLeft, SideLeft} }
}

// OverwritePolicy always takes winner's definition, regardless of
// timestamps — "overwrite, with either side winning" per spec.md §4.6.
func OverwritePolicy(winner Side) CritAction {
	return func(Entry, Entry) MergeDecision { return MergeDecision{winner, winner} }
}

// PreserveNewerPolicy keeps whichever side's Meta.MTime is more recent,
// for both data and EA/FSA.
func PreserveNewerPolicy() CritAction {
	return func(left, right Entry) MergeDecision {
		lm, rm := left.Meta(), right.Meta()
		if lm == nil || rm == nil || !rm.MTime.After(lm.MTime) {
			return MergeDecision{SideLeft, SideLeft}
		}
		return MergeDecision{SideRight, SideRight}
	}
}

// pairing lines up same-named entries from two directories being merged,
// the "candidates/étage" bookkeeping of spec.md §4.6, before a CritAction
// is applied to each pair.
type pairing struct {
	name        string
	left, right Entry
}

func pairChildren(left, right *Directory) []pairing {
	seen := make(map[string]bool, len(left.Children))
	out := make([]pairing, 0, len(left.Children)+len(right.Children))
	for _, l := range left.Children {
		name := l.Meta().Name
		seen[name] = true
		out = append(out, pairing{name: name, left: l, right: right.Find(name)})
	}
	for _, r := range right.Children {
		name := r.Meta().Name
		if seen[name] {
			continue
		}
		out = append(out, pairing{name: name, left: nil, right: r})
	}
	return out
}

// compatibleCompression reports whether two File entries could share a
// stored body verbatim without recompression: same algorithm only,
// per spec.md §4.6's "keep-compressed is only possible when both sides
// share algorithm and block size" (block size is a pile-wide setting the
// coordinator already pins, so only the algorithm is compared here).
func compatibleCompression(a, b *File) bool {
	return a.Saved == Saved && b.Saved == Saved && a.CompressionUsed == b.CompressionUsed
}

// Merge combines left and right into a freshly built catalogue according
// to policy, per spec.md §4.6. keepCompressed, when true, prefers an
// entry whose stored body can be kept without recompression over the
// policy's raw decision, but only among File/File pairs with
// compatibleCompression; otherwise recomputeDelta (if non-nil, as
// transfer_delta_signatures does) is NOT invoked here — Merge only
// decides which side's entry definition survives.
func Merge(left, right *Catalogue, policy CritAction, keepCompressed bool) *Catalogue {
	out := New(left.DataName)
	out.Root = mergeDir(left.Root, right.Root, policy, keepCompressed)
	rebuildStats(out)
	return out
}

func mergeDir(left, right *Directory, policy CritAction, keepCompressed bool) *Directory {
	merged := &Directory{M: left.M}
	for _, p := range pairChildren(left, right) {
		switch {
		case p.left == nil:
			merged.Add(p.right)
		case p.right == nil:
			merged.Add(p.left)
		default:
			merged.Add(mergeEntry(p.left, p.right, policy, keepCompressed))
		}
	}
	return merged
}

func mergeEntry(left, right Entry, policy CritAction, keepCompressed bool) Entry {
	leftDir, leftIsDir := left.(*Directory)
	rightDir, rightIsDir := right.(*Directory)
	if leftIsDir && rightIsDir {
		return mergeDir(leftDir, rightDir, policy, keepCompressed)
	}

	leftFile, leftIsFile := left.(*File)
	rightFile, rightIsFile := right.(*File)
	if keepCompressed && leftIsFile && rightIsFile && compatibleCompression(leftFile, rightFile) {
		return leftFile
	}

	decision := policy(left, right)
	var winner Entry
	if decision.Data == SideLeft {
		winner = left
	} else {
		winner = right
	}
	applyEADecision(winner, left, right, decision.EA)
	return winner
}

func applyEADecision(winner, left, right Entry, eaSide Side) {
	wm := winner.Meta()
	if wm == nil {
		return
	}
	if eaSide == SideLeft {
		if lm := left.Meta(); lm != nil {
			wm.EA = lm.EA
		}
	} else {
		if rm := right.Meta(); rm != nil {
			wm.EA = rm.EA
		}
	}
}

func rebuildStats(c *Catalogue) {
	c.Stats = Stats{}
	cur := c.NewSequentialCursor()
	for {
		e, err := cur.Next()
		if err != nil {
			return
		}
		if e.Kind() != KindEoD {
			c.Stats.account(e)
		}
	}
}
