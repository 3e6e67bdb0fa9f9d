package frontier

import (
	"log/slog"
	"math/rand"

	"blogdiscover/internal/domain"
)

// Strategy selects where newly accepted candidates land in the queue.
type Strategy string

const (
	// BreadthFirst appends to the back: seeds first, then level by level.
	BreadthFirst Strategy = "breadth_first"
	// DepthFirst inserts at the front: explore new discoveries deeply.
	DepthFirst Strategy = "depth_first"
	// Random inserts at a uniformly random index.
	Random Strategy = "random"
	// Mixed biases non-seed discoveries toward the front half half the time.
	Mixed Strategy = "mixed"
)

// ParseStrategy maps a configured name to a Strategy, falling back to
// Mixed with a warning on anything unrecognized.
func ParseStrategy(name string, log *slog.Logger) Strategy {
	switch Strategy(name) {
	case BreadthFirst, DepthFirst, Random, Mixed:
		return Strategy(name)
	}
	if log != nil {
		log.Warn("invalid queue strategy, using mixed", "strategy", name)
	}
	return Mixed
}

// Frontier is the ordered pending-work queue. Consumption is always from
// the front; the strategy only controls insertion position.
type Frontier struct {
	strategy Strategy
	items    []domain.FrontierItem
	rng      *rand.Rand
}

// New builds a frontier. The rng drives the random and mixed policies;
// tests pass a seeded source to pin insertion indices.
func New(strategy Strategy, rng *rand.Rand) *Frontier {
	return &Frontier{strategy: strategy, rng: rng}
}

// Len reports the number of pending items.
func (f *Frontier) Len() int { return len(f.items) }

// Add places an item according to the configured strategy.
func (f *Frontier) Add(item domain.FrontierItem) {
	switch f.strategy {
	case BreadthFirst:
		f.items = append(f.items, item)
	case DepthFirst:
		f.insertAt(0, item)
	case Random:
		f.insertAt(f.rng.Intn(len(f.items)+1), item)
	case Mixed:
		if item.Depth() > 0 && len(f.items) > 0 && f.rng.Float64() < 0.5 {
			half := len(f.items) / 2
			if half < 1 {
				half = 1
			}
			f.insertAt(f.rng.Intn(half+1), item)
		} else {
			f.items = append(f.items, item)
		}
	default:
		f.items = append(f.items, item)
	}
}

// Append puts an item at the back regardless of strategy. Seeds enter
// the queue in file order.
func (f *Frontier) Append(item domain.FrontierItem) {
	f.items = append(f.items, item)
}

// Pop removes and returns the front item.
func (f *Frontier) Pop() (domain.FrontierItem, bool) {
	if len(f.items) == 0 {
		return domain.FrontierItem{}, false
	}
	item := f.items[0]
	f.items = f.items[1:]
	return item, true
}

// Snapshot returns the pending items in order, for checkpointing.
func (f *Frontier) Snapshot() []domain.FrontierItem {
	out := make([]domain.FrontierItem, len(f.items))
	copy(out, f.items)
	return out
}

// Restore replaces the queue contents, preserving the given order.
func (f *Frontier) Restore(items []domain.FrontierItem) {
	f.items = make([]domain.FrontierItem, len(items))
	copy(f.items, items)
}

func (f *Frontier) insertAt(idx int, item domain.FrontierItem) {
	f.items = append(f.items, domain.FrontierItem{})
	copy(f.items[idx+1:], f.items[idx:])
	f.items[idx] = item
}
