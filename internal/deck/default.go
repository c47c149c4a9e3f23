package deck

// DefaultQuestionSeconds is the time limit applied to built-in questions.
const DefaultQuestionSeconds = 20

// DefaultDeck builds the built-in deck substituted when a post has no stored
// deck yet. Each call returns a fresh value tagged SourceDefault; callers
// decide whether to persist it based on that provenance, never on identity.
func DefaultDeck() Deck {
	return Deck{
		ID:        "default-duel",
		Title:     "Debate Dueler Classics",
		CreatedBy: "debate-dueler",
		FlairText: "Daily Duel",
		Source:    SourceDefault,
		Questions: []Question{
			{
				ID:           "q-pineapple",
				Prompt:       "Pineapple on pizza?",
				QuestionType: TypeSingle,
				TimeLimit:    DefaultQuestionSeconds,
				Cards: []Card{
					{ID: "c-yes", Text: "Obviously yes"},
					{ID: "c-no", Text: "Culinary crime"},
					{ID: "c-depends", Text: "Depends on the pizza"},
				},
			},
			{
				ID:           "q-breakfast",
				Prompt:       "Rank these breakfasts from best to worst",
				QuestionType: TypeSequence,
				TimeLimit:    DefaultQuestionSeconds,
				Cards: []Card{
					{ID: "c-pancakes", Text: "Pancakes"},
					{ID: "c-fryup", Text: "Full fry-up"},
					{ID: "c-cereal", Text: "Cereal"},
					{ID: "c-nothing", Text: "Just coffee"},
				},
			},
			{
				ID:           "q-hotdog",
				Prompt:       "Is a hot dog a sandwich?",
				QuestionType: TypeSingle,
				TimeLimit:    DefaultQuestionSeconds,
				Cards: []Card{
					{ID: "c-sandwich", Text: "Yes, it's bread and filling"},
					{ID: "c-taco", Text: "No, it's closer to a taco"},
					{ID: "c-hotdog", Text: "A hot dog is a hot dog"},
				},
			},
			{
				ID:           "q-superpower",
				Prompt:       "Rank these superpowers",
				QuestionType: TypeSequence,
				TimeLimit:    DefaultQuestionSeconds,
				Cards: []Card{
					{ID: "c-fly", Text: "Flight"},
					{ID: "c-invisible", Text: "Invisibility"},
					{ID: "c-time", Text: "Stop time"},
					{ID: "c-minds", Text: "Read minds"},
				},
			},
			{
				ID:           "q-toilet-paper",
				Prompt:       "Toilet paper: over or under?",
				QuestionType: TypeSingle,
				TimeLimit:    DefaultQuestionSeconds,
				Cards: []Card{
					{ID: "c-over", Text: "Over"},
					{ID: "c-under", Text: "Under"},
				},
			},
		},
		QuestionStats: []QuestionStats{},
	}
}
