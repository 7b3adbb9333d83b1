package domain

import "time"

// EventType represents the type of room notification
type EventType string

const (
	EventRoomCreated         EventType = "room_created"
	EventJoinSuccess         EventType = "join_success"
	EventPlayerJoined        EventType = "player_joined"
	EventPlayerDisconnected  EventType = "player_disconnected"
	EventPlayerReconnected   EventType = "player_reconnected"
	EventPlayerRemoved       EventType = "player_removed"
	EventGameStarted         EventType = "game_started"
	EventQuestionSubmitted   EventType = "question_submitted"
	EventSubmissionCountdown EventType = "submission_countdown"
	EventCountdownCancelled  EventType = "submission_countdown_cancelled"
	EventVotingPhase         EventType = "voting_phase"
	EventVoteReceived        EventType = "vote_received"
	EventGuessingPhase       EventType = "guessing_phase"
	EventGuessResult         EventType = "guess_result"
	EventPlayerChoice        EventType = "player_choice"
	EventRoundResults        EventType = "round_results"
	EventNewRound            EventType = "new_round"
	EventGameEnded           EventType = "game_ended"
	EventRoomClosed          EventType = "room_closed"
	EventReconnectSuccess    EventType = "reconnect_success"
)

// Event is one outbound notification handed to the broadcast gateway.
// An empty ConnID addresses the whole room; otherwise only the named
// connection receives it.
type Event struct {
	Type      EventType `json:"type"`
	RoomCode  string    `json:"roomCode"`
	ConnID    string    `json:"-"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a room-wide notification
func NewEvent(eventType EventType, roomCode string, payload any) *Event {
	return &Event{
		Type:      eventType,
		RoomCode:  roomCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewDirectEvent creates a notification addressed to a single connection
func NewDirectEvent(eventType EventType, roomCode, connID string, payload any) *Event {
	return &Event{
		Type:      eventType,
		RoomCode:  roomCode,
		ConnID:    connID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for outbound notifications

// RoomCreatedPayload is sent to the host after create_room
type RoomCreatedPayload struct {
	RoomCode    string `json:"roomCode"`
	TotalRounds int    `json:"totalRounds"`
}

// RosterPayload accompanies roster changes
type RosterPayload struct {
	PlayerName string       `json:"playerName,omitempty"`
	Players    []PlayerInfo `json:"players"`
}

// GameStartedPayload is sent when the host starts the game, and reused for
// new_round
type GameStartedPayload struct {
	Round        int        `json:"round"`
	TargetPlayer PlayerInfo `json:"targetPlayer"`
}

// QuestionSubmittedPayload acknowledges one submission to the room
type QuestionSubmittedPayload struct {
	PlayerName string `json:"playerName"`
}

// CountdownPayload carries a phase deadline
type CountdownPayload struct {
	Seconds  int       `json:"seconds"`
	Deadline time.Time `json:"deadline"`
}

// VotingPhasePayload carries the per-recipient voting pool. The host gets
// the unfiltered set; each player's own question is removed from theirs.
type VotingPhasePayload struct {
	Questions []QuestionView `json:"questions"`
	Seconds   int            `json:"seconds"`
	Deadline  time.Time      `json:"deadline"`
}

// VoteReceivedPayload is sent after each accepted vote
type VoteReceivedPayload struct {
	VotesCount int          `json:"votesCount"`
	Players    []PlayerInfo `json:"players"`
}

// GuessingPhasePayload announces the selected question and its target
type GuessingPhasePayload struct {
	Question     string     `json:"question"`
	TargetPlayer PlayerInfo `json:"targetPlayer"`
	AuthorID     string     `json:"authorId"`
}

// GuessResultPayload is sent as soon as the target guesses
type GuessResultPayload struct {
	Correct bool `json:"correct"`
}

// PlayerChoicePayload relays a skip to the room
type PlayerChoicePayload struct {
	Choice string `json:"choice"`
}

// RoundResultsPayload closes out a round before the next begins
type RoundResultsPayload struct {
	Correct  bool         `json:"correct"`
	Skipped  bool         `json:"skipped"`
	AuthorID string       `json:"authorId"`
	Players  []PlayerInfo `json:"players"`
}

// GameEndedPayload carries final standings
type GameEndedPayload struct {
	Players     []PlayerInfo   `json:"players"`
	FinalScores map[string]int `json:"finalScores"`
	Bonuses     []BonusAward   `json:"bonuses"`
}

// RoomClosedPayload explains why a room went away
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// ReconnectPayload is the full state snapshot sent to a reconnecting player
type ReconnectPayload struct {
	Phase            Phase          `json:"currentPhase"`
	Round            int            `json:"currentRound"`
	TotalRounds      int            `json:"totalRounds"`
	Players          []PlayerInfo   `json:"players"`
	Scores           map[string]int `json:"scores"`
	SelectedQuestion *QuestionView  `json:"selectedQuestion,omitempty"`
	QuestionAuthorID string         `json:"questionAuthorId,omitempty"`
	TargetPlayer     *PlayerInfo    `json:"targetPlayer,omitempty"`
	HasSubmitted     bool           `json:"hasSubmitted"`
	HasVoted         bool           `json:"hasVoted"`
	VotingQuestions  []QuestionView `json:"votingQuestions,omitempty"`
}
