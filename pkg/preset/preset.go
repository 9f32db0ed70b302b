// Package preset resolves user defined command presets.
package preset

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/samber/lo"
)

const (
	MaxPhraseLength   = 20
	MaxShortcutLength = 200
	roomCacheSize     = 3
)

var inlineRegexp = regexp.MustCompile(`^(?P<phrase>[^→>]+?)\s*(?:→|->)\s*(?P<shortcut>.+)$`)

// Resolve matches the whole normalized text against the stored phrases. When
// nothing matches, a batch of inline "phrase → shortcut" definitions is
// returned as candidates so the caller can offer to save them.
func Resolve(text string, presets []core.Preset) (content string, used bool, candidates []core.Preset) {
	for _, p := range presets {
		if p.Phrase == text {
			return p.Shortcut, true, nil
		}
	}
	return text, false, ParseInline(text)
}

// ParseInline extracts a batch of inline definitions separated by new lines
// or ';'. The text must hold at least two definitions and nothing else, so a
// command that merely contains an arrow is left alone. Single presets are
// created with "preset add".
func ParseInline(text string) []core.Preset {
	entries := lo.Compact(lo.Map(strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' }),
		func(s string, _ int) string { return strings.TrimSpace(s) }))
	if len(entries) < 2 {
		return nil
	}

	found := make([]core.Preset, 0, len(entries))
	for _, entry := range entries {
		match := inlineRegexp.FindStringSubmatch(entry)
		if match == nil {
			return nil
		}
		phrase := strings.TrimSpace(match[inlineRegexp.SubexpIndex("phrase")])
		shortcut := strings.TrimSpace(match[inlineRegexp.SubexpIndex("shortcut")])
		if phrase == "" || shortcut == "" {
			return nil
		}
		found = append(found, core.Preset{Phrase: phrase, Shortcut: shortcut})
	}
	return found
}

// Add appends a preset. Duplicate phrases and oversized values are rejected.
func Add(presets []core.Preset, phrase, shortcut string) ([]core.Preset, error) {
	phrase, shortcut = strings.TrimSpace(phrase), strings.TrimSpace(shortcut)

	switch {
	case phrase == "" || shortcut == "":
		return presets, core.NewUserError(core.ErrInvalidArgument, "A preset needs a phrase and a command.")
	case len([]rune(phrase)) > MaxPhraseLength:
		return presets, core.NewUserError(core.ErrInvalidArgument,
			"Preset title can be up to %d characters long.", MaxPhraseLength)
	case len([]rune(shortcut)) > MaxShortcutLength:
		return presets, core.NewUserError(core.ErrInvalidArgument,
			"Preset shortcut can be up to %d characters long.", MaxShortcutLength)
	case phrase == shortcut:
		return presets, core.NewUserError(core.ErrInvalidArgument, "A preset cannot point to itself.")
	}

	if slices.ContainsFunc(presets, func(p core.Preset) bool { return p.Phrase == phrase }) {
		return presets, fmt.Errorf("preset `%s`: %w", phrase, core.ErrDuplicate)
	}

	return append(slices.Clone(presets), core.Preset{Phrase: phrase, Shortcut: shortcut}), nil
}

// Remove deletes the preset with phrase.
func Remove(presets []core.Preset, phrase string) ([]core.Preset, error) {
	remaining := lo.Reject(presets, func(p core.Preset, _ int) bool { return p.Phrase == phrase })
	if len(remaining) == len(presets) {
		return presets, fmt.Errorf("preset `%s`: %w", phrase, core.ErrNotFound)
	}
	return remaining, nil
}

// Sorted returns presets ordered by phrase.
func Sorted(presets []core.Preset) []core.Preset {
	sorted := slices.Clone(presets)
	slices.SortFunc(sorted, func(a, b core.Preset) int { return strings.Compare(a.Phrase, b.Phrase) })
	return sorted
}

// RoomCache remembers the last presets used in each room.
type RoomCache struct {
	mu    sync.Mutex
	rooms map[int64][]core.Preset
}

func NewRoomCache() *RoomCache {
	return &RoomCache{rooms: make(map[int64][]core.Preset)}
}

// Remember records presets used in room, keeping the three most recent.
func (c *RoomCache) Remember(room int64, used ...core.Preset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached := c.rooms[room]
	for _, p := range used {
		if !slices.Contains(cached, p) {
			cached = append(cached, p)
		}
	}
	if len(cached) > roomCacheSize {
		cached = cached[len(cached)-roomCacheSize:]
	}
	c.rooms[room] = cached
}

// Lookup finds a recently used preset whose phrase is text.
func (c *RoomCache) Lookup(room int64, text string) (core.Preset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Find(c.rooms[room], func(p core.Preset) bool { return p.Phrase == text })
}
