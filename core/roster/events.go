package roster

import "github.com/trezcool/lophoc/core/rank"

// Event is an effect produced by reconciliation, consumed by the presentation layer.
type Event interface {
	event()
}

// Updated is emitted for every applied point change.
type Updated struct {
	StudentID string
	Delta     int
}

// Promoted is emitted when a point change moves a student to a higher tier.
type Promoted struct {
	StudentID string
	Name      string
	Tier      rank.Tier
}

func (Updated) event()  {}
func (Promoted) event() {}
