package domain

import "math/rand"

// Pure tally and bonus computations. Randomness is injected so winner
// selection is deterministic under a fixed source.

// TallyVotes counts votes per question id
func TallyVotes(votes map[string]string) map[string]int {
	tally := make(map[string]int, len(votes))
	for _, questionID := range votes {
		tally[questionID]++
	}
	return tally
}

// SelectWinner picks the round's question from the tally. Ties on the
// maximum vote count are broken uniformly at random; if no votes were cast
// at all, the winner is drawn uniformly from the displayed pool instead.
func SelectWinner(tally map[string]int, displayed []*Question, rng *rand.Rand) *Question {
	if len(displayed) == 0 {
		return nil
	}

	if len(tally) == 0 {
		return displayed[rng.Intn(len(displayed))]
	}

	maxVotes := 0
	for _, count := range tally {
		if count > maxVotes {
			maxVotes = count
		}
	}

	// Iterate the displayed slice, not the map, so candidate order is stable
	// and the rng draw is reproducible.
	leaders := make([]*Question, 0, len(displayed))
	for _, q := range displayed {
		if tally[q.ID] == maxVotes {
			leaders = append(leaders, q)
		}
	}
	if len(leaders) == 0 {
		return displayed[rng.Intn(len(displayed))]
	}

	return leaders[rng.Intn(len(leaders))]
}

// Bonus reasons
const (
	BonusLongestQuestions = "longest_questions"
	BonusMostSnoops       = "most_snoops"
	BonusMostDisplayed    = "most_displayed"
)

// BonusAward is one end-of-game bonus granted to a player
type BonusAward struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Reason     string `json:"reason"`
	Points     int    `json:"points"`
}

// EndGameBonuses computes the end-of-game bonuses over a room's accumulated
// data. Each bonus requires a strictly unique maximum; ties award nothing.
// The caller guards against reapplication with Room.BonusesApplied.
func EndGameBonuses(r *Room, points int) []BonusAward {
	awards := make([]BonusAward, 0, 3)

	if id, ok := longestAverageAuthor(r); ok {
		awards = append(awards, award(r, id, BonusLongestQuestions, points))
	}
	if id, ok := uniqueMaxSnoops(r); ok {
		awards = append(awards, award(r, id, BonusMostSnoops, points))
	}
	if id, ok := mostDisplayedAuthor(r); ok {
		awards = append(awards, award(r, id, BonusMostDisplayed, points))
	}

	return awards
}

func award(r *Room, playerID, reason string, points int) BonusAward {
	name := ""
	if p := r.FindByID(playerID); p != nil {
		name = p.Name
	}
	return BonusAward{PlayerID: playerID, PlayerName: name, Reason: reason, Points: points}
}

// longestAverageAuthor finds the player with the strictly highest average
// submitted-question length. Synthetic questions are excluded: the player
// did not write them.
func longestAverageAuthor(r *Room) (string, bool) {
	lengths := make(map[string]int)
	counts := make(map[string]int)
	for _, q := range r.Questions {
		if q.Synthetic {
			continue
		}
		lengths[q.AuthorID] += len(q.Text)
		counts[q.AuthorID]++
	}

	best, bestAvg := "", -1.0
	unique := false
	for _, p := range r.Players {
		if counts[p.ID] == 0 {
			continue
		}
		avg := float64(lengths[p.ID]) / float64(counts[p.ID])
		switch {
		case avg > bestAvg:
			best, bestAvg, unique = p.ID, avg, true
		case avg == bestAvg:
			unique = false
		}
	}
	return best, unique && best != ""
}

// uniqueMaxSnoops finds the player with the strictly highest count of
// correct guesses
func uniqueMaxSnoops(r *Room) (string, bool) {
	best, bestCount := "", 0
	unique := false
	for _, p := range r.Players {
		switch {
		case p.Snoops > bestCount:
			best, bestCount, unique = p.ID, p.Snoops, true
		case p.Snoops == bestCount && p.Snoops > 0:
			unique = false
		}
	}
	return best, unique && best != ""
}

// mostDisplayedAuthor finds the author of the single most-frequently
// displayed question across the whole game
func mostDisplayedAuthor(r *Room) (string, bool) {
	var best *Question
	bestCount := 0
	unique := false
	for _, q := range r.Questions {
		switch {
		case q.DisplayCount > bestCount:
			best, bestCount, unique = q, q.DisplayCount, true
		case q.DisplayCount == bestCount && q.DisplayCount > 0:
			unique = false
		}
	}
	if best == nil || !unique {
		return "", false
	}
	return best.AuthorID, true
}
