package policy

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a field path. A path like "items[*].ssn" parses
// into {Key:"items", Wildcard:true} followed by {Key:"ssn"}.
type Segment struct {
	Key      string
	Index    int
	HasIndex bool
	Wildcard bool
}

// ParsePath splits a dot/bracket field path into segments. At most one
// wildcard segment is permitted per path.
func ParsePath(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("policy: empty field path")
	}

	parts := strings.Split(path, ".")
	segments := make([]Segment, 0, len(parts))
	wildcards := 0

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("policy: empty segment in path %q", path)
		}

		seg := Segment{Key: part}
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, fmt.Errorf("policy: unterminated bracket in path %q", path)
			}
			inner := part[open+1 : len(part)-1]
			seg.Key = part[:open]
			if seg.Key == "" {
				return nil, fmt.Errorf("policy: bracket without key in path %q", path)
			}
			if inner == "*" {
				seg.Wildcard = true
				wildcards++
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("policy: invalid index %q in path %q", inner, path)
				}
				seg.Index = idx
				seg.HasIndex = true
			}
		}
		segments = append(segments, seg)
	}

	if wildcards > 1 {
		return nil, fmt.Errorf("policy: path %q has %d wildcard segments, at most one allowed", path, wildcards)
	}
	return segments, nil
}
