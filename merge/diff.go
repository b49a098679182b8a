package merge

import (
	"regexp"
	"strings"
)

// FileDiff is one file entry parsed out of a unified multi-file diff.
type FileDiff struct {
	Path      string
	IsNew     bool
	IsBinary  bool
	HasHunks  bool
	BaseLines []string
	NewLines  []string
}

var (
	fileHeaderRe = regexp.MustCompile(`(?m)^diff --git a/(.+?) b/(.+?)$`)
	newFileRe    = regexp.MustCompile(`(?m)^new file mode`)
	binaryRe     = regexp.MustCompile(`(?m)^Binary files .+ differ$`)
	hunkRe       = regexp.MustCompile(`(?m)^@@ .+ @@`)
)

// parseDiff splits a unified multi-file diff into per-file sections. It does
// not reconstruct blob content beyond the hunk context lines needed for the
// conservative conflict checks in analyze.go.
func parseDiff(raw string) []*FileDiff {
	headers := fileHeaderRe.FindAllStringSubmatchIndex(raw, -1)
	if len(headers) == 0 {
		return nil
	}

	out := make([]*FileDiff, 0, len(headers))
	for i, h := range headers {
		start := h[0]
		end := len(raw)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		section := raw[start:end]

		pathStart, pathEnd := h[4], h[5]
		path := raw[pathStart:pathEnd]

		fd := &FileDiff{
			Path:     path,
			IsNew:    newFileRe.MatchString(section),
			IsBinary: binaryRe.MatchString(section),
			HasHunks: hunkRe.MatchString(section),
		}
		fd.BaseLines, fd.NewLines = splitHunkLines(section)
		out = append(out, fd)
	}
	return out
}

// splitHunkLines extracts the removed ("-") lines as the base-side content
// and the added ("+") lines as the new-side content, across every hunk in
// section. This approximates "reconstructing the base blob from the hunks"
// well enough for equality comparison against target content.
func splitHunkLines(section string) (base []string, added []string) {
	for _, line := range strings.Split(section, "\n") {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added = append(added, line[1:])
		case strings.HasPrefix(line, "-"):
			base = append(base, line[1:])
		}
	}
	return base, added
}
