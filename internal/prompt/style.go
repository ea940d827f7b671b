package prompt

import "strings"

// Style selects how a summary is phrased.
type Style int

const (
	StyleDefault Style = iota
	StyleGeneral
	StyleBulletPoints
)

// Styles lists every supported style.
var Styles = []Style{StyleDefault, StyleGeneral, StyleBulletPoints}

var styleNames = map[Style]string{
	StyleDefault:      "default",
	StyleGeneral:      "general",
	StyleBulletPoints: "bullet_points",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return styleNames[StyleDefault]
}

// ParseStyle maps a style name to a Style. Unknown names fall back to StyleDefault.
func ParseStyle(name string) Style {
	s, _ := lookupStyle(name)
	return s
}

func lookupStyle(name string) (Style, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "general":
		return StyleGeneral, true
	case "bullet_points", "bullet-points", "bullets":
		return StyleBulletPoints, true
	case "default":
		return StyleDefault, true
	default:
		return StyleDefault, false
	}
}

// Mode says whether a prompt summarizes source text or merges partial summaries.
type Mode int

const (
	ModeMap Mode = iota
	ModeReduce
)

func (m Mode) String() string {
	if m == ModeReduce {
		return "reduce"
	}
	return "map"
}
