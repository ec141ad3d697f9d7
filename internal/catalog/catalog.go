// Package catalog holds the items, semantic groups, and question bank
// that round content is drawn from.
package catalog

import (
	"fmt"
	"math"
)

// Item is a displayable object with a stable identifier.
type Item struct {
	ID    string
	Glyph string
}

// Group names a set of mutually confusable items. Groups may overlap.
type Group struct {
	Name  string
	Items []string
}

// Question is an authored odd-one-out question over catalog items.
type Question struct {
	Difficulty float64
	Category   string
	Related    []string
	Odd        string
}

// Catalog is an immutable content registry validated at load time.
type Catalog struct {
	items     []Item
	groups    []Group
	questions []Question

	byID     map[string]Item
	groupsOf map[string][]string
}

// New builds a Catalog from raw content and validates it.
func New(items []Item, groups []Group, questions []Question) (*Catalog, error) {
	c := &Catalog{
		items:     items,
		groups:    groups,
		questions: questions,
		byID:      make(map[string]Item, len(items)),
		groupsOf:  make(map[string][]string),
	}
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("item with empty id")
		}
		if item.Glyph == "" {
			return nil, fmt.Errorf("item %q has no glyph", item.ID)
		}
		if _, ok := c.byID[item.ID]; ok {
			return nil, fmt.Errorf("duplicate item id %q", item.ID)
		}
		c.byID[item.ID] = item
	}
	seenGroups := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group with empty name")
		}
		if _, ok := seenGroups[g.Name]; ok {
			return nil, fmt.Errorf("duplicate group %q", g.Name)
		}
		seenGroups[g.Name] = struct{}{}
		if len(g.Items) < 2 {
			return nil, fmt.Errorf("group %q needs at least 2 items", g.Name)
		}
		seen := make(map[string]struct{}, len(g.Items))
		for _, id := range g.Items {
			if _, ok := c.byID[id]; !ok {
				return nil, fmt.Errorf("group %q references unknown item %q", g.Name, id)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("group %q lists item %q twice", g.Name, id)
			}
			seen[id] = struct{}{}
			c.groupsOf[id] = append(c.groupsOf[id], g.Name)
		}
	}
	for i, q := range questions {
		if err := c.validateQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return c, nil
}

func (c *Catalog) validateQuestion(q Question) error {
	if q.Difficulty < 0 || q.Difficulty > 1 {
		return fmt.Errorf("difficulty %.2f outside [0,1]", q.Difficulty)
	}
	if q.Category == "" {
		return fmt.Errorf("missing category")
	}
	if len(q.Related) < 2 {
		return fmt.Errorf("needs at least 2 related items")
	}
	if q.Odd == "" {
		return fmt.Errorf("missing odd item")
	}
	if _, ok := c.byID[q.Odd]; !ok {
		return fmt.Errorf("odd item %q is not in the catalog", q.Odd)
	}
	seen := make(map[string]struct{}, len(q.Related))
	for _, id := range q.Related {
		if _, ok := c.byID[id]; !ok {
			return fmt.Errorf("related item %q is not in the catalog", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("related item %q listed twice", id)
		}
		seen[id] = struct{}{}
	}
	if _, clash := seen[q.Odd]; clash {
		return fmt.Errorf("odd item %q appears among related items", q.Odd)
	}
	return nil
}

// Items returns all catalog items in authored order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Groups returns all semantic groups in authored order.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Questions returns the full question bank.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// ItemByID looks up an item by identifier.
func (c *Catalog) ItemByID(id string) (Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// GroupsFor returns the group names an item belongs to.
func (c *Catalog) GroupsFor(id string) []string {
	return c.groupsOf[id]
}

// SharesGroup reports whether two items belong to a common semantic group.
func (c *Catalog) SharesGroup(a, b string) bool {
	if a == b {
		return true
	}
	groupsA := c.groupsOf[a]
	if len(groupsA) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(groupsA))
	for _, g := range groupsA {
		set[g] = struct{}{}
	}
	for _, g := range c.groupsOf[b] {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}

// QuestionsInBand returns indices of questions whose difficulty lies within
// width of the given value.
func (c *Catalog) QuestionsInBand(difficulty, width float64) []int {
	var out []int
	for i, q := range c.questions {
		if math.Abs(q.Difficulty-difficulty) <= width {
			out = append(out, i)
		}
	}
	return out
}

// QuestionAt returns the question at a bank index.
func (c *Catalog) QuestionAt(i int) Question {
	return c.questions[i]
}

// NumQuestions returns the size of the question bank.
func (c *Catalog) NumQuestions() int {
	return len(c.questions)
}
