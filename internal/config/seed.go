package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// SeedLabel is a label created on first start.
type SeedLabel struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Color string `toml:"color"`
	Icon  string `toml:"icon"`
}

// SeedList is a list created on first start in addition to the inbox.
type SeedList struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Color string `toml:"color"`
	Icon  string `toml:"icon"`
}

// Seed describes the records every fresh database starts with.
type Seed struct {
	InboxName string      `toml:"inbox_name"`
	Labels    []SeedLabel `toml:"labels"`
	Lists     []SeedList  `toml:"lists"`
}

// DefaultSeed returns the built-in inbox name and labels.
func DefaultSeed() Seed {
	return Seed{
		InboxName: "Inbox",
		Labels: []SeedLabel{
			{ID: "work", Name: "Work", Color: "#3b82f6", Icon: "💼"},
			{ID: "personal", Name: "Personal", Color: "#10b981", Icon: "🏠"},
			{ID: "urgent", Name: "Urgent", Color: "#ef4444", Icon: "🚨"},
			{ID: "shopping", Name: "Shopping", Color: "#f59e0b", Icon: "🛒"},
			{ID: "health", Name: "Health", Color: "#8b5cf6", Icon: "💪"},
		},
	}
}

// LoadSeed reads a TOML seed file. A missing file yields DefaultSeed.
func LoadSeed(path string) (Seed, error) {
	seed := DefaultSeed()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return seed, nil
	}
	if err != nil {
		return seed, fmt.Errorf("read seed: %w", err)
	}

	var fromFile Seed
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return seed, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if fromFile.InboxName != "" {
		seed.InboxName = fromFile.InboxName
	}
	if fromFile.Labels != nil {
		seed.Labels = fromFile.Labels
	}
	seed.Lists = fromFile.Lists
	return seed, nil
}

// LoadOrCreateSeed reads the seed file, first writing DefaultSeed to path
// when it does not exist so the defaults can be edited.
func LoadOrCreateSeed(path string) (Seed, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		seed := DefaultSeed()
		if err := WriteSeed(path, seed); err != nil {
			return seed, fmt.Errorf("write default seed: %w", err)
		}
		return seed, nil
	}
	return LoadSeed(path)
}

// WriteSeed stores seed as TOML at path.
func WriteSeed(path string, seed Seed) error {
	data, err := toml.Marshal(seed)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
