// Package classification defines the ordered classification levels,
// compartments, and immutable markings used by the access and redaction
// engines.
package classification

import "fmt"

// Level is a U.S. Government classification level (EO 13526). Wire values
// are compact codes to keep payloads small.
type Level string

const (
	Unclassified Level = "U"
	CUI          Level = "CUI"
	Confidential Level = "C"
	Secret       Level = "S"
	TopSecret    Level = "TS"
	TSSCI        Level = "TS//SCI"
)

// levelRanks carries an explicit rank per level. Precedence never derives
// from declaration order; refactors must not change ordering semantics.
var levelRanks = map[Level]int{
	Unclassified: 0,
	CUI:          1,
	Confidential: 2,
	Secret:       3,
	TopSecret:    4,
	TSSCI:        5,
}

// levelNames maps long-form names to levels for lenient parsing.
var levelNames = map[string]Level{
	"U":            Unclassified,
	"UNCLASSIFIED": Unclassified,
	"CUI":          CUI,
	"C":            Confidential,
	"CONFIDENTIAL": Confidential,
	"S":            Secret,
	"SECRET":       Secret,
	"TS":           TopSecret,
	"TOP_SECRET":   TopSecret,
	"TS//SCI":      TSSCI,
	"TS_SCI":       TSSCI,
}

// bannerColors are the Astro UXDS banner colors per level.
var bannerColors = map[Level]string{
	Unclassified: "#007A33",
	CUI:          "#502B85",
	Confidential: "#0033A0",
	Secret:       "#C8102E",
	TopSecret:    "#FF8C00",
	TSSCI:        "#FCE83A",
}

// Valid reports whether l is one of the six defined levels.
func (l Level) Valid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Rank returns the numeric rank of the level (0 through 5). An unknown
// level ranks below Unclassified so that a corrupt clearance value never
// grants access.
func (l Level) Rank() int {
	r, ok := levelRanks[l]
	if !ok {
		return -1
	}
	return r
}

// Dominates reports whether a subject holding l may read data at required.
// An unknown required level is treated as TS//SCI (most restrictive); an
// unknown holder level never dominates anything.
func (l Level) Dominates(required Level) bool {
	rr, ok := levelRanks[required]
	if !ok {
		rr = levelRanks[TSSCI]
	}
	return l.Rank() >= rr
}

// BannerColor returns the UI banner color for the level. Unknown levels get
// the TS//SCI color, matching the most-restrictive fallback.
func (l Level) BannerColor() string {
	if c, ok := bannerColors[l]; ok {
		return c
	}
	return bannerColors[TSSCI]
}

// ParseLevel converts a wire code or long-form name into a Level.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelNames[s]; ok {
		return l, nil
	}
	return "", fmt.Errorf("classification: unknown level %q", s)
}

// LevelOrMostRestrictive parses a resource-side level, resolving anything
// missing or unparseable to TS//SCI. Data of unknown sensitivity is locked
// down, never exposed.
func LevelOrMostRestrictive(s string) Level {
	if l, err := ParseLevel(s); err == nil {
		return l
	}
	return TSSCI
}

// LevelOrLeastPrivilege parses a subject-side clearance, resolving anything
// missing or unparseable to Unclassified. A subject of unknown standing
// holds no clearance.
func LevelOrLeastPrivilege(s string) Level {
	if l, err := ParseLevel(s); err == nil {
		return l
	}
	return Unclassified
}

// Max returns the higher-ranked of two levels.
func Max(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
