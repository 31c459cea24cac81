package student

import (
	"fmt"
	"sort"
)

// MonthStat sums the points awarded and deducted during one month.
type MonthStat struct {
	Month    string `json:"month"` // M/YYYY
	Added    int    `json:"added"`
	Deducted int    `json:"deducted"` // positive
}

// MonthlyStats groups history by calendar month (UTC), oldest month first.
func MonthlyStats(history []PointHistoryEntry) []MonthStat {
	type key struct{ year, month int }

	sums := make(map[key]*MonthStat)
	keys := make([]key, 0)
	for _, h := range history {
		ts := h.Timestamp.UTC()
		k := key{ts.Year(), int(ts.Month())}
		stat, ok := sums[k]
		if !ok {
			stat = &MonthStat{Month: fmt.Sprintf("%d/%d", k.month, k.year)}
			sums[k] = stat
			keys = append(keys, k)
		}
		if h.Change > 0 {
			stat.Added += h.Change
		} else {
			stat.Deducted -= h.Change
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	stats := make([]MonthStat, 0, len(keys))
	for _, k := range keys {
		stats = append(stats, *sums[k])
	}
	return stats
}
