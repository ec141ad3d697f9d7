package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultTOML []byte

type fileCatalog struct {
	Items     []fileItem     `toml:"item"`
	Groups    []fileGroup    `toml:"group"`
	Questions []fileQuestion `toml:"question"`
}

type fileItem struct {
	ID    string `toml:"id"`
	Glyph string `toml:"glyph"`
}

type fileGroup struct {
	Name  string   `toml:"name"`
	Items []string `toml:"items"`
}

type fileQuestion struct {
	Difficulty float64  `toml:"difficulty"`
	Category   string   `toml:"category"`
	Related    []string `toml:"related"`
	Odd        string   `toml:"odd"`
}

// Default returns the embedded built-in catalog.
func Default() (*Catalog, error) {
	c, err := parse(defaultTOML)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return c, nil
}

// LoadFile reads and validates a catalog from a TOML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var raw fileCatalog
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(raw.Items) == 0 {
		return nil, fmt.Errorf("catalog has no items")
	}
	items := make([]Item, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, Item{ID: it.ID, Glyph: it.Glyph})
	}
	groups := make([]Group, 0, len(raw.Groups))
	for _, g := range raw.Groups {
		groups = append(groups, Group{Name: g.Name, Items: g.Items})
	}
	questions := make([]Question, 0, len(raw.Questions))
	for _, q := range raw.Questions {
		questions = append(questions, Question{
			Difficulty: q.Difficulty,
			Category:   q.Category,
			Related:    q.Related,
			Odd:        q.Odd,
		})
	}
	return New(items, groups, questions)
}
