// Package roster holds the client-side state of the selected classroom: the student list,
// its top-N ordering, point change reconciliation and the two-step reward redemption flow.
package roster

import (
	"sort"

	"github.com/trezcool/lophoc/core/rank"
	"github.com/trezcool/lophoc/core/student"
)

// Change is the outcome of reconciling a student with its server-confirmed update.
type Change struct {
	StudentID   string
	Delta       int
	TierChanged bool       // promotions only; demotions are silent
	NewTier     *rank.Tier // set only when TierChanged
}

// Reconcile compares the held copy of a student with the one the server returned.
func Reconcile(prior, updated student.Student) Change {
	c := Change{
		StudentID: updated.ID,
		Delta:     updated.TotalPoints - prior.TotalPoints,
	}
	if rank.Promoted(prior.TotalPoints, updated.TotalPoints) {
		tier := updated.Rank()
		c.TierChanged = true
		c.NewTier = &tier
	}
	return c
}

// TopN returns the ids of the n students with the most points.
// Students with equal points keep their list order.
func TopN(students []student.Student, n int) []string {
	if n <= 0 {
		return []string{}
	}
	sorted := make([]student.Student, len(students))
	copy(sorted, students)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPoints > sorted[j].TotalPoints
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	ids := make([]string, 0, len(sorted))
	for _, s := range sorted {
		ids = append(ids, s.ID)
	}
	return ids
}

func TopThree(students []student.Student) []string {
	return TopN(students, 3)
}
