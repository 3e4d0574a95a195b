// Package batch groups changed files into oracle requests bounded by a
// payload ceiling, preserving file order so results can be re-attributed.
package batch

import "github.com/sevigo/autoreviewbot/internal/core"

// Pack greedily accumulates files into batches whose rendered DiffText
// length stays at or under maxChars, newline separators included. A single
// file exceeding the cap on its own forms a singleton batch: files are never
// dropped, and diffs are never truncated, because truncation would corrupt
// the line numbering the position resolver depends on.
//
// The concatenation of all batches equals the input in its original order.
func Pack(files []core.ChangedFile, maxChars int) []core.ReviewBatch {
	var batches []core.ReviewBatch
	var current core.ReviewBatch

	flush := func() {
		if len(current.Files) > 0 {
			batches = append(batches, current)
			current = core.ReviewBatch{}
		}
	}

	for _, f := range files {
		size := len(f.Diff)
		if len(current.Files) > 0 && current.Size+1+size > maxChars {
			flush()
		}
		if len(current.Files) > 0 {
			current.Size++ // separator inserted by DiffText
		}
		current.Files = append(current.Files, f)
		current.Size += size
	}
	flush()

	return batches
}
