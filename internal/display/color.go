package display

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseColorMode parses a --color flag value.
func ParseColorMode(v string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color mode: %s", v)
	}
}

// EnvMap turns os.Environ style entries into a map.
func EnvMap(values []string) map[string]string {
	env := make(map[string]string, len(values))
	for _, entry := range values {
		if entry == "" {
			continue
		}
		if k, v, ok := strings.Cut(entry, "="); ok {
			env[k] = v
		} else {
			env[entry] = ""
		}
	}
	return env
}

// ColorEnabled resolves mode to a yes/no answer for out.
//
// For ColorAuto the first matching rule wins:
//  1. TERM=dumb or a non-empty NO_COLOR disables colour.
//  2. CLICOLOR=0 disables colour.
//  3. A non-zero CLICOLOR_FORCE or FORCE_COLOR enables colour.
//  4. Otherwise colour is used only when out is a terminal.
func ColorEnabled(mode ColorMode, out *os.File, env map[string]string) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if strings.EqualFold(strings.TrimSpace(env["TERM"]), "dumb") {
		return false
	}
	if strings.TrimSpace(env["NO_COLOR"]) != "" {
		return false
	}
	if strings.TrimSpace(env["CLICOLOR"]) == "0" {
		return false
	}
	if forceColor(env["CLICOLOR_FORCE"]) || forceColor(env["FORCE_COLOR"]) {
		return true
	}
	return IsTerminal(out)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func forceColor(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "0"
}

// style is an SGR attribute set.
type style struct {
	bold bool
	fg   int // basic 8-colour index, -1 for none
}

var (
	stylePath  = style{fg: 5}
	styleLine  = style{fg: 2}
	styleMatch = style{bold: true, fg: 1}
	styleSep   = style{fg: 6}
)

func (s style) apply(text string, enabled bool) string {
	if !enabled || text == "" {
		return text
	}
	codes := make([]string, 0, 2)
	if s.bold {
		codes = append(codes, "1")
	}
	if s.fg >= 0 {
		codes = append(codes, fmt.Sprintf("3%d", s.fg))
	}
	return "\x1b[" + strings.Join(codes, ";") + "m" + text + "\x1b[0m"
}
