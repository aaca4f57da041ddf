package domain

// LineState is the post-mutation disposal count of the order line being written,
// when that line still belongs to the key being recomputed.
type LineState struct {
	Disquantity int64
}

// Snapshot is everything Recompute needs about one key after a line write.
// OtherDisposing counts lines in the key with disquantity > 0, excluding the
// mutated line by id; Line is nil when that line was deleted or left the key.
type Snapshot struct {
	OtherDisposing int64
	Line           *LineState
}

// Recompute derives the bin state from a snapshot. It is flagged exactly when at
// least one line of the key still holds disposed units.
func Recompute(s Snapshot) State {
	if s.Line != nil && s.Line.Disquantity > 0 {
		return StateFlagged
	}
	if s.OtherDisposing > 0 {
		return StateFlagged
	}
	return StateClear
}
