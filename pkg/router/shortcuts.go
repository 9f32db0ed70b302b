package router

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed shortcuts.yaml
var defaultShortcuts []byte

// Shortcut rewrites a whole message into a canonical command.
type Shortcut struct {
	Match      []string `yaml:"match"`
	Command    string   `yaml:"command"`
	Deprecated bool     `yaml:"deprecated"`
}

type replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Shortcuts is the ordered rewrite table.
type Shortcuts struct {
	Room    []Shortcut    `yaml:"room"`
	Global  []Shortcut    `yaml:"global"`
	Replace []replacement `yaml:"replace"`
}

// LoadShortcuts parses a YAML rewrite table.
func LoadShortcuts(data []byte) (*Shortcuts, error) {
	var s Shortcuts
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse shortcuts: %w", err)
	}
	for _, list := range [][]Shortcut{s.Room, s.Global} {
		for i, entry := range list {
			if entry.Command == "" || len(entry.Match) == 0 {
				return nil, fmt.Errorf("parse shortcuts: entry %d is incomplete", i)
			}
		}
	}
	return &s, nil
}

// DefaultShortcuts returns the embedded table.
func DefaultShortcuts() *Shortcuts {
	s, err := LoadShortcuts(defaultShortcuts)
	if err != nil {
		panic(err)
	}
	return s
}

// Rewrite applies the table to a normalized message. used is only set by
// room shortcuts.
func (s *Shortcuts) Rewrite(text string, roomShortcuts bool) (out string, used, deprecated bool) {
	out = text
	if roomShortcuts {
		if entry, ok := lookup(s.Room, out); ok {
			out, deprecated = entry.Command, entry.Deprecated
		}
	}
	used = out != text

	if entry, ok := lookup(s.Global, out); ok {
		out = entry.Command
	}
	for _, r := range s.Replace {
		out = strings.ReplaceAll(out, r.From, r.To)
	}
	return out, used, deprecated
}

func lookup(table []Shortcut, text string) (Shortcut, bool) {
	for _, entry := range table {
		if slices.Contains(entry.Match, text) {
			return entry, true
		}
	}
	return Shortcut{}, false
}
