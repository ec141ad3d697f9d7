package selector

import (
	"fmt"
	"math/rand"

	"github.com/verte-zerg/mnemo/internal/catalog"
	"github.com/verte-zerg/mnemo/internal/engine"
)

// bandWidth is the difficulty distance a question may sit from the current
// value and still be drawn.
const bandWidth = 0.2

// BankSelector builds rounds for the odd-one-out game from the authored
// question bank. A used question is excluded for the rest of the session
// until the difficulty band's pool is exhausted, at which point the
// exclusion set resets.
type BankSelector struct {
	cat  *catalog.Catalog
	rnd  *rand.Rand
	used map[int]struct{}
}

// NewBank returns a bank selector over the catalog's question bank.
func NewBank(cat *catalog.Catalog, rnd *rand.Rand) (*BankSelector, error) {
	if cat.NumQuestions() == 0 {
		return nil, fmt.Errorf("catalog has no questions")
	}
	return &BankSelector{cat: cat, rnd: rnd, used: make(map[int]struct{})}, nil
}

// SelectRound draws one question near the current difficulty and lays its
// options out as a single-trial round.
func (b *BankSelector) SelectRound(index int, difficulty float64) (*engine.Round, error) {
	pool := b.cat.QuestionsInBand(difficulty, bandWidth)
	if len(pool) == 0 {
		pool = b.allQuestions()
	}
	unused := b.unusedFrom(pool)
	if len(unused) == 0 {
		b.used = make(map[int]struct{})
		unused = pool
	}
	qi := unused[b.rnd.Intn(len(unused))]
	b.used[qi] = struct{}{}

	question := b.cat.QuestionAt(qi)
	options, oddIdx, err := b.assemble(question)
	if err != nil {
		return nil, err
	}

	slots := make(map[string]int, len(options))
	for i, item := range options {
		slots[item.ID] = i
	}
	return &engine.Round{
		Index:     index,
		Strategy:  engine.StrategyQuestion,
		Items:     options,
		Slots:     slots,
		SlotCount: len(options),
		GroupName: question.Category,
		Trials: []engine.TrialSpec{{
			TargetID:    options[oddIdx].ID,
			CorrectSlot: oddIdx,
			Category:    question.Category,
		}},
	}, nil
}

func (b *BankSelector) allQuestions() []int {
	out := make([]int, b.cat.NumQuestions())
	for i := range out {
		out[i] = i
	}
	return out
}

func (b *BankSelector) unusedFrom(pool []int) []int {
	var out []int
	for _, qi := range pool {
		if _, taken := b.used[qi]; !taken {
			out = append(out, qi)
		}
	}
	return out
}

// assemble resolves the question's items, enforces that the odd item does
// not collide with the related set (substituting from the catalog when it
// does), and returns the shuffled option list with the odd index.
func (b *BankSelector) assemble(q catalog.Question) ([]catalog.Item, int, error) {
	relatedSet := make(map[string]struct{}, len(q.Related))
	related := make([]catalog.Item, 0, len(q.Related))
	for _, id := range q.Related {
		if _, dup := relatedSet[id]; dup {
			continue
		}
		item, ok := b.cat.ItemByID(id)
		if !ok {
			return nil, 0, fmt.Errorf("question references unknown item %q", id)
		}
		relatedSet[id] = struct{}{}
		related = append(related, item)
	}
	if len(related) < 2 {
		return nil, 0, fmt.Errorf("question has fewer than 2 distinct related items")
	}

	oddID := q.Odd
	if _, clash := relatedSet[oddID]; clash {
		replacement, err := b.substituteOdd(relatedSet)
		if err != nil {
			return nil, 0, err
		}
		oddID = replacement
	}
	odd, ok := b.cat.ItemByID(oddID)
	if !ok {
		return nil, 0, fmt.Errorf("odd item %q is not in the catalog", oddID)
	}

	options := append(related, odd)
	b.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	for i, item := range options {
		if item.ID == odd.ID {
			return options, i, nil
		}
	}
	return nil, 0, fmt.Errorf("odd item lost during shuffle")
}

// substituteOdd draws a replacement odd item not already present among the
// related items. An exhausted catalog is a configuration defect.
func (b *BankSelector) substituteOdd(relatedSet map[string]struct{}) (string, error) {
	items := b.cat.Items()
	b.rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	for _, item := range items {
		if _, present := relatedSet[item.ID]; !present {
			return item.ID, nil
		}
	}
	return "", fmt.Errorf("catalog exhausted: no replacement odd item available")
}
