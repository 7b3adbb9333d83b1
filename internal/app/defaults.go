package app

import "math/rand"

// DefaultQuestions is the pool used to synthesize a submission for any
// player who misses the question deadline. Kept short and generic so the
// auto-filled prompts read plausibly in any group.
var DefaultQuestions = []string{
	"Who here would survive longest in a zombie apocalypse?",
	"Who is most likely to become famous?",
	"Who would win in a trivia contest?",
	"Who is secretly the best cook in the room?",
	"Who would be the first to cry at a movie?",
	"Who is most likely to forget their own birthday?",
	"Who would make the best reality TV contestant?",
	"Who is most likely to talk their way out of a ticket?",
	"Who would spend their last dollar on snacks?",
	"Who is most likely to befriend a total stranger?",
	"Who would accidentally join a cult?",
	"Who is most likely to laugh at the worst moment?",
	"Who would bring a spreadsheet to a party?",
	"Who is most likely to move abroad on a whim?",
	"Who would adopt every stray animal they meet?",
}

// PickDefaultQuestion draws a synthesized question text from the pool
func PickDefaultQuestion(rng *rand.Rand) string {
	return DefaultQuestions[rng.Intn(len(DefaultQuestions))]
}
