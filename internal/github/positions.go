package github

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRegex = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// BuildPositionMap converts a file's patch into a mapping from new-file line
// number to the diff position GitHub's comment API expects. The position is
// a running counter over every patch line, hunk headers included.
//
// Only added lines get an entry: context lines advance the new-line counter
// without becoming addressable, and removed lines have no new-file line at
// all. A violation reported against a line absent from this map falls back
// to the summary comment.
func BuildPositionMap(patch string, logger *slog.Logger) map[int]int {
	positions := make(map[int]int)
	if patch == "" {
		return positions
	}

	position := 0
	newLine := -1
	inHunk := false

	for _, line := range strings.Split(patch, "\n") {
		position++

		if strings.HasPrefix(line, "@@") {
			matches := hunkHeaderRegex.FindStringSubmatch(line)
			if len(matches) < 2 {
				// Skip malformed hunk; don't use corrupted line numbers
				if logger != nil {
					logger.Warn("skipped malformed hunk header", "line", line)
				}
				inHunk = false
				continue
			}
			start, err := strconv.Atoi(matches[1])
			if err != nil {
				if logger != nil {
					logger.Warn("skipped malformed hunk header", "line", line, "error", err)
				}
				inHunk = false
				continue
			}
			newLine = start - 1
			inHunk = true
			continue
		}

		if !inHunk {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			newLine++
			positions[newLine] = position
		case strings.HasPrefix(line, "-"):
			// removed line exists only in the old file
		default:
			newLine++
		}
	}

	return positions
}
