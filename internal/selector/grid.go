// Package selector assembles round content under difficulty and
// non-repetition constraints.
package selector

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/verte-zerg/mnemo/internal/catalog"
	"github.com/verte-zerg/mnemo/internal/engine"
)

// GridSelector builds rounds for the object-location game. Round 1 draws
// across semantic groups for maximal distinctness, round 2 draws a single
// confusable group, and later rounds draw freely, with one delayed-recall
// trial re-asking a round-1 location at round 3.
type GridSelector struct {
	cat       *catalog.Catalog
	rnd       *rand.Rand
	minItems  int
	maxItems  int
	slotCount int

	baselineSlots map[string]int
	baselineOrder []string
}

// NewGrid validates the catalog against the requested sizes and returns a
// grid selector.
func NewGrid(cat *catalog.Catalog, rnd *rand.Rand, minItems, maxItems, slotCount int) (*GridSelector, error) {
	if minItems < 1 {
		return nil, fmt.Errorf("min items must be at least 1")
	}
	if maxItems < minItems {
		return nil, fmt.Errorf("max items %d below min items %d", maxItems, minItems)
	}
	if slotCount < maxItems {
		return nil, fmt.Errorf("grid has %d slots but up to %d items may be requested", slotCount, maxItems)
	}
	if n := len(cat.Items()); n < maxItems {
		return nil, fmt.Errorf("catalog has %d items but up to %d may be requested", n, maxItems)
	}
	return &GridSelector{
		cat:       cat,
		rnd:       rnd,
		minItems:  minItems,
		maxItems:  maxItems,
		slotCount: slotCount,
	}, nil
}

// DesiredCount interpolates the trial size between the configured minimum
// and maximum for a difficulty in [0,1].
func (g *GridSelector) DesiredCount(difficulty float64) int {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > 1 {
		difficulty = 1
	}
	return g.minItems + int(math.Round(difficulty*float64(g.maxItems-g.minItems)))
}

// SelectRound assembles the round's items, slot assignment, and trials.
func (g *GridSelector) SelectRound(index int, difficulty float64) (*engine.Round, error) {
	count := g.DesiredCount(difficulty)

	var (
		items     []catalog.Item
		strategy  engine.Strategy
		groupName string
		err       error
	)
	switch {
	case index == 1:
		items = g.baselinePick(count)
		strategy = engine.StrategyBaseline
	case index == 2:
		items, groupName, err = g.confusablePick(count)
		if err != nil {
			return nil, err
		}
		strategy = engine.StrategyConfusable
	default:
		items = g.randomSubset(count)
		strategy = engine.StrategyNormal
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items selected")
	}

	slots := g.assignSlots(items)
	if index == 1 {
		g.baselineSlots = make(map[string]int, len(slots))
		g.baselineOrder = g.baselineOrder[:0]
		for _, item := range items {
			g.baselineSlots[item.ID] = slots[item.ID]
			g.baselineOrder = append(g.baselineOrder, item.ID)
		}
	}

	trials := make([]engine.TrialSpec, 0, len(items)+1)
	if index == 3 && len(g.baselineOrder) > 0 {
		id := g.baselineOrder[g.rnd.Intn(len(g.baselineOrder))]
		trials = append(trials, engine.TrialSpec{
			TargetID:    id,
			CorrectSlot: g.baselineSlots[id],
			Delayed:     true,
		})
	}
	for _, i := range g.rnd.Perm(len(items)) {
		item := items[i]
		trials = append(trials, engine.TrialSpec{
			TargetID:    item.ID,
			CorrectSlot: slots[item.ID],
		})
	}

	return &engine.Round{
		Index:     index,
		Strategy:  strategy,
		Items:     items,
		Slots:     slots,
		SlotCount: g.slotCount,
		GroupName: groupName,
		Trials:    trials,
	}, nil
}

// baselinePick draws at most one item per shuffled group, then tops up
// from the full catalog without duplicates.
func (g *GridSelector) baselinePick(count int) []catalog.Item {
	groups := g.cat.Groups()
	g.rnd.Shuffle(len(groups), func(i, j int) {
		groups[i], groups[j] = groups[j], groups[i]
	})

	chosen := make([]catalog.Item, 0, count)
	seen := make(map[string]struct{}, count)
	for _, group := range groups {
		if len(chosen) >= count {
			break
		}
		ids := append([]string(nil), group.Items...)
		g.rnd.Shuffle(len(ids), func(i, j int) {
			ids[i], ids[j] = ids[j], ids[i]
		})
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			item, ok := g.cat.ItemByID(id)
			if !ok {
				continue
			}
			chosen = append(chosen, item)
			seen[id] = struct{}{}
			break
		}
	}
	for _, item := range g.shuffledItems() {
		if len(chosen) >= count {
			break
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		chosen = append(chosen, item)
		seen[item.ID] = struct{}{}
	}
	return chosen
}

// confusablePick chooses a single group covering the desired count,
// preferring an exact size match. When no group is large enough it falls
// back to the largest available group with a floor of 3 items.
func (g *GridSelector) confusablePick(count int) ([]catalog.Item, string, error) {
	groups := g.cat.Groups()
	if len(groups) == 0 {
		return nil, "", fmt.Errorf("catalog has no semantic groups")
	}
	var exact, larger []catalog.Group
	largest := groups[0]
	for _, group := range groups {
		switch {
		case len(group.Items) == count:
			exact = append(exact, group)
		case len(group.Items) > count:
			larger = append(larger, group)
		}
		if len(group.Items) > len(largest.Items) {
			largest = group
		}
	}

	chosen := largest
	size := count
	switch {
	case len(exact) > 0:
		chosen = exact[g.rnd.Intn(len(exact))]
	case len(larger) > 0:
		chosen = larger[g.rnd.Intn(len(larger))]
	default:
		size = len(chosen.Items)
		if size < 3 {
			return nil, "", fmt.Errorf("largest group %q has %d items, need at least 3", chosen.Name, size)
		}
	}

	ids := append([]string(nil), chosen.Items...)
	g.rnd.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	items := make([]catalog.Item, 0, size)
	for _, id := range ids[:size] {
		item, ok := g.cat.ItemByID(id)
		if !ok {
			return nil, "", fmt.Errorf("group %q references unknown item %q", chosen.Name, id)
		}
		items = append(items, item)
	}
	return items, chosen.Name, nil
}

func (g *GridSelector) randomSubset(count int) []catalog.Item {
	items := g.shuffledItems()
	if count > len(items) {
		count = len(items)
	}
	return items[:count]
}

func (g *GridSelector) shuffledItems() []catalog.Item {
	items := g.cat.Items()
	g.rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	return items
}

// assignSlots maps the chosen items onto a uniform random subset of grid
// slots, one slot per item.
func (g *GridSelector) assignSlots(items []catalog.Item) map[string]int {
	perm := g.rnd.Perm(g.slotCount)
	slots := make(map[string]int, len(items))
	for i, item := range items {
		slots[item.ID] = perm[i]
	}
	return slots
}
