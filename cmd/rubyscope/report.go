package main

import (
	"encoding/json"
	"os"

	"rubyscope/internal/definition"
	"rubyscope/internal/interp"
)

// Outline is a serializable view of the definition graph: the constant
// namespace tree with methods listed per scope. Inherited and autoloaded
// definitions are not expanded, only what the analyzed code declared.
type Outline struct {
	Constants []OutlineEntry `json:"constants"`
}

type OutlineEntry struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	File       string         `json:"file,omitempty"`
	Line       int            `json:"line,omitempty"`
	References int            `json:"references,omitempty"`
	Methods    []OutlineEntry `json:"methods,omitempty"`
	Constants  []OutlineEntry `json:"constants,omitempty"`
}

func BuildOutline(result *interp.Result) *Outline {
	return &Outline{Constants: namespaceEntries(result.Root())}
}

func namespaceEntries(scope *definition.Definition) []OutlineEntry {
	var entries []OutlineEntry
	scope.EachChild(func(kind definition.Kind, name string, def *definition.Definition) {
		switch kind {
		case definition.KindClass, definition.KindModule:
			if def.Node == nil {
				return // autoloaded, not declared in the analyzed code
			}
			entry := entryFor(def)
			entry.Methods = methodEntries(def)
			entry.Constants = namespaceEntries(def)
			entries = append(entries, entry)
		}
	})
	return entries
}

func methodEntries(scope *definition.Definition) []OutlineEntry {
	var entries []OutlineEntry
	scope.EachChild(func(kind definition.Kind, name string, def *definition.Definition) {
		switch kind {
		case definition.KindInstanceMethod, definition.KindMethod:
			if def.Node == nil {
				return
			}
			entries = append(entries, entryFor(def))
		}
	})
	return entries
}

func entryFor(def *definition.Definition) OutlineEntry {
	entry := OutlineEntry{
		Name:       def.Name,
		Kind:       def.Kind.String(),
		References: def.References,
	}
	if def.Node != nil {
		entry.File = def.Node.Loc.File
		entry.Line = def.Node.Loc.Line
	}
	return entry
}

// Counts tallies declared classes, modules and methods across the outline.
func (o *Outline) Counts() (classes, modules, methods int) {
	var walk func(entries []OutlineEntry)
	walk = func(entries []OutlineEntry) {
		for _, e := range entries {
			switch e.Kind {
			case definition.KindClass.String():
				classes++
			case definition.KindModule.String():
				modules++
			}
			methods += len(e.Methods)
			walk(e.Constants)
		}
	}
	walk(o.Constants)
	return classes, modules, methods
}

func (o *Outline) WriteJSON(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
