// Package doctag parses documentation comments into parameter and return
// type hints. It is a pure text transform with no knowledge of the
// definition graph.
package doctag

import (
	"strings"
)

// Tags is the type information extracted from one comment block.
type Tags struct {
	// Params maps a parameter name to its declared type names.
	Params map[string][]string
	// Return lists the declared return type names, first one preferred.
	Return []string
}

// Empty reports whether no tags were found.
func (t Tags) Empty() bool {
	return len(t.Params) == 0 && len(t.Return) == 0
}

// Parse scans raw comment lines for "@param <name> <types>" and
// "@return <types>" tags. Types are separated by "|" or ",". Lines that
// do not match are ignored; malformed tags degrade to no hint.
func Parse(lines []string) Tags {
	tags := Tags{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "#")
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "@param"):
			fields := strings.Fields(strings.TrimPrefix(line, "@param"))
			if len(fields) < 2 {
				continue
			}
			name := strings.TrimPrefix(fields[0], "*")
			name = strings.TrimSuffix(name, ":")
			types := splitTypes(strings.Join(fields[1:], " "))
			if len(types) == 0 {
				continue
			}
			if tags.Params == nil {
				tags.Params = make(map[string][]string)
			}
			tags.Params[name] = types
		case strings.HasPrefix(line, "@return"):
			types := splitTypes(strings.TrimSpace(strings.TrimPrefix(line, "@return")))
			if len(types) > 0 {
				tags.Return = types
			}
		}
	}
	return tags
}

func splitTypes(s string) []string {
	var out []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	}) {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
