package domain

// Phase represents the current phase of a room's state machine
type Phase string

const (
	PhaseWaiting  Phase = "waiting"  // Lobby: players joining
	PhaseQuestion Phase = "question" // Players submitting questions
	PhaseVoting   Phase = "voting"   // Players voting on displayed questions
	PhaseGuessing Phase = "guessing" // Target guessing the winning question's author
	PhaseFinished Phase = "finished" // Final standings shown, expiry timer running
	PhaseClosed   Phase = "closed"   // Room torn down after idle expiry
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// InRound reports whether the phase belongs to an active round.
func (p Phase) InRound() bool {
	return p == PhaseQuestion || p == PhaseVoting || p == PhaseGuessing
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseWaiting:  {PhaseQuestion},
		PhaseQuestion: {PhaseVoting},
		PhaseVoting:   {PhaseGuessing},
		PhaseGuessing: {PhaseQuestion, PhaseFinished}, // Next round or end of game
		PhaseFinished: {PhaseClosed},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
