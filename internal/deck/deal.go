package deck

import "math/rand"

// MaxDealSize caps how many questions one delivery hands a player.
const MaxDealSize = 10

// Deal returns a delivery copy of the deck: questions shuffled with an
// unbiased Fisher-Yates permutation, then truncated to at most max (so any
// subset of the stored questions can appear, uniformly). The stored deck is
// never modified; truncation after shuffling is load-bearing.
func Deal(rng *rand.Rand, d Deck, max int) Deck {
	if max <= 0 {
		max = MaxDealSize
	}

	questions := make([]Question, len(d.Questions))
	copy(questions, d.Questions)

	for i := len(questions) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}

	if len(questions) > max {
		questions = questions[:max]
	}

	dealt := d
	dealt.Questions = questions
	return dealt
}

// TallyAnswers folds a completed game's answers into the deck's aggregate
// stats. Every answer bumps TotalResponses for its question; only the
// first-ranked card of a sequence answer (or the single chosen card) bumps a
// card tally, which keeps sum(cardStats) <= totalResponses. Empty answers
// count as a response with no card tally.
func TallyAnswers(d *Deck, answers []PlayerAnswer) {
	for _, ans := range answers {
		if _, _, ok := d.QuestionByID(ans.QuestionID); !ok {
			continue
		}
		stats := d.StatsFor(ans.QuestionID)
		if stats == nil {
			d.QuestionStats = append(d.QuestionStats, QuestionStats{
				QuestionID: ans.QuestionID,
				CardStats:  make(map[string]int),
			})
			stats = &d.QuestionStats[len(d.QuestionStats)-1]
		}
		if stats.CardStats == nil {
			stats.CardStats = make(map[string]int)
		}
		stats.TotalResponses++
		if len(ans.CardIDs) > 0 {
			stats.CardStats[ans.CardIDs[0]]++
		}
	}
}
