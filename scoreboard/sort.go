package scoreboard

import (
	"cmp"
	"slices"
	"strings"
)

// SortByScore orders entries by total points descending, then by total
// penalty ascending. Rows tied on both keep their relative order.
func SortByScore(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Total.Points, a.Total.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Total.Penalty, b.Total.Penalty)
	})
}

// SortByName orders entries by username, byte-wise.
func SortByName(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Username, b.Username)
	})
}
