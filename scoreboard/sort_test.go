package scoreboard_test

import (
	"testing"

	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/stretchr/testify/require"
)

func entry(username string, points, penalty float64) scoreboard.Entry {
	return scoreboard.Entry{
		Username: username,
		Name:     username,
		Total:    scoreboard.Score{Points: points, Penalty: penalty},
	}
}

func usernames(entries []scoreboard.Entry) []string {
	res := make([]string, len(entries))
	for i, e := range entries {
		res[i] = e.Username
	}
	return res
}

func TestSortByScore(t *testing.T) {
	entries := []scoreboard.Entry{
		entry("carol", 100, 30),
		entry("dave", 50, 0),
		entry("alice", 100, 10),
		entry("erin", 100, 30),
		entry("bob", 200, 99),
	}

	scoreboard.SortByScore(entries)
	require.Equal(t, []string{"bob", "alice", "carol", "erin", "dave"}, usernames(entries))

	// sorting again keeps the exact same order
	scoreboard.SortByScore(entries)
	require.Equal(t, []string{"bob", "alice", "carol", "erin", "dave"}, usernames(entries))
}

func TestSortByScore_TiesKeepInputOrder(t *testing.T) {
	entries := []scoreboard.Entry{
		entry("zed", 10, 5),
		entry("amy", 10, 5),
		entry("kim", 10, 5),
	}
	scoreboard.SortByScore(entries)
	require.Equal(t, []string{"zed", "amy", "kim"}, usernames(entries))
}

func TestSortByName_IsByteWise(t *testing.T) {
	entries := []scoreboard.Entry{
		entry("bob", 1, 0),
		entry("Zoe", 2, 0),
		entry("alice", 3, 0),
		entry("Bob", 4, 0),
	}
	scoreboard.SortByName(entries)
	require.Equal(t, []string{"Bob", "Zoe", "alice", "bob"}, usernames(entries))
}
