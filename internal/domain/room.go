package domain

import (
	"strings"
	"time"
	"unicode"
)

// Settings holds the static per-deployment game parameters. Total rounds is
// the only per-request value and is clamped into [MinRounds, MaxRounds].
type Settings struct {
	MinRounds             int
	MaxRounds             int
	MaxPlayers            int
	MaxNameLength         int
	MaxQuestionLength     int
	SubmissionCountdown   time.Duration
	VotingCountdown       time.Duration
	PostGuessDelay        time.Duration
	ReconnectGrace        time.Duration
	IdleExpiry            time.Duration
	BonusCorrectGuess     int
	BonusWrongGuessAuthor int
	BonusSkipAuthor       int
	BonusEndGame          int
}

// DefaultSettings returns the default game settings
func DefaultSettings() Settings {
	return Settings{
		MinRounds:             3,
		MaxRounds:             10,
		MaxPlayers:            10,
		MaxNameLength:         15,
		MaxQuestionLength:     150,
		SubmissionCountdown:   60 * time.Second,
		VotingCountdown:       45 * time.Second,
		PostGuessDelay:        7 * time.Second,
		ReconnectGrace:        10 * time.Minute,
		IdleExpiry:            5 * time.Minute,
		BonusCorrectGuess:     5,
		BonusWrongGuessAuthor: 2,
		BonusSkipAuthor:       0,
		BonusEndGame:          3,
	}
}

// Room is one game instance. All mutation runs under the owning session's
// lock; methods here never lock.
type Room struct {
	Code               string
	HostConnID         string
	Players            []*Player
	Phase              Phase
	RoundNumber        int
	TotalRounds        int
	Questions          []*Question // Whole lifetime, stamped with round
	DisplayedQuestions []*Question // Current round's voting pool, at most 6
	Votes              map[string]string // voter player id -> question id
	Scores             map[string]int    // player id -> points
	SelectedQuestion   *Question
	TargetPlayer       *Player
	InitialRoster      []string // Names snapshot taken at game start
	BonusesApplied     bool
	GuessResolved      bool // The round's guess or skip has been consumed
	Settings           Settings
	CreatedAt          time.Time
	LastActive         time.Time
}

// NewRoom creates a room owned by the given host connection
func NewRoom(code, hostConnID string, totalRounds int, settings Settings) *Room {
	if totalRounds < settings.MinRounds {
		totalRounds = settings.MinRounds
	}
	if totalRounds > settings.MaxRounds {
		totalRounds = settings.MaxRounds
	}

	now := time.Now()
	return &Room{
		Code:        code,
		HostConnID:  hostConnID,
		Players:     make([]*Player, 0),
		Phase:       PhaseWaiting,
		TotalRounds: totalRounds,
		Questions:   make([]*Question, 0),
		Votes:       make(map[string]string),
		Scores:      make(map[string]int),
		Settings:    settings,
		CreatedAt:   now,
		LastActive:  now,
	}
}

// Touch records room activity for idle tracking
func (r *Room) Touch() {
	r.LastActive = time.Now()
}

// ValidateName applies the join/reconnect name rules without mutating state
func (r *Room) ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > r.Settings.MaxNameLength {
		return ErrNameTooLong
	}
	for _, c := range name {
		if unicode.IsDigit(c) {
			return ErrNameHasDigits
		}
	}
	return nil
}

// FindByConn returns the player currently bound to the given connection id
func (r *Room) FindByConn(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// FindByName returns the player with the given name, active or disconnected.
// The match is case-insensitive.
func (r *Room) FindByName(name string) *Player {
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// FindByID returns the player with the given stable identity
func (r *Room) FindByID(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ActivePlayers returns the players currently holding a live connection
func (r *Room) ActivePlayers() []*Player {
	active := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active
}

// AddPlayer joins a new player to the room. Reconnection of a disconnected
// slot is the identity resolver's job, not AddPlayer's.
func (r *Room) AddPlayer(connID, name string) (*Player, error) {
	if err := r.ValidateName(name); err != nil {
		return nil, err
	}
	if r.Phase != PhaseWaiting {
		return nil, ErrGameInProgress
	}

	for _, p := range r.ActivePlayers() {
		if strings.EqualFold(p.Name, name) {
			return nil, ErrNameTaken
		}
	}
	if len(r.ActivePlayers()) >= r.Settings.MaxPlayers {
		return nil, ErrRoomFull
	}

	player := NewPlayer(connID, strings.TrimSpace(name))
	r.Players = append(r.Players, player)
	r.Scores[player.ID] = 0
	r.Touch()

	return player, nil
}

// RemovePlayer drops a player's slot from the roster. The score entry is
// retained so accumulated totals stay stable for end-game bonuses.
func (r *Room) RemovePlayer(playerID string) {
	for i, p := range r.Players {
		if p.ID == playerID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

// QuestionByAuthor returns the question the given player authored for the
// given round, if any. Lookup is by stable identity, so it stays correct
// across reconnection relabels.
func (r *Room) QuestionByAuthor(playerID string, round int) *Question {
	for _, q := range r.Questions {
		if q.Round == round && q.AuthorID == playerID {
			return q
		}
	}
	return nil
}

// QuestionByID returns the question with the given id
func (r *Room) QuestionByID(id string) *Question {
	for _, q := range r.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// RoundQuestions returns all questions submitted for the given round
func (r *Room) RoundQuestions(round int) []*Question {
	qs := make([]*Question, 0, len(r.Players))
	for _, q := range r.Questions {
		if q.Round == round {
			qs = append(qs, q)
		}
	}
	return qs
}

// AddQuestion records a submission for the current round
func (r *Room) AddQuestion(author *Player, text, targetName string, synthetic bool) (*Question, error) {
	if r.Phase != PhaseQuestion {
		return nil, ErrWrongPhase
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	if len(text) > r.Settings.MaxQuestionLength {
		return nil, ErrQuestionTooLong
	}
	if r.QuestionByAuthor(author.ID, r.RoundNumber) != nil {
		return nil, ErrAlreadySubmitted
	}

	q := NewQuestion(author, text, targetName, r.RoundNumber, synthetic)
	r.Questions = append(r.Questions, q)
	r.Touch()

	return q, nil
}

// AllSubmitted reports whether every active player has a question this round
func (r *Room) AllSubmitted() bool {
	for _, p := range r.ActivePlayers() {
		if r.QuestionByAuthor(p.ID, r.RoundNumber) == nil {
			return false
		}
	}
	return len(r.ActivePlayers()) > 0
}

// RecordVote stores a vote after rejecting self-votes and repeats. Only the
// round's displayed pool is votable: Questions accumulates across the whole
// game, so a stale id from an earlier round (or a submission that was not
// sampled) must not score.
func (r *Room) RecordVote(voter *Player, questionID string) (*Question, error) {
	if r.Phase != PhaseVoting {
		return nil, ErrWrongPhase
	}
	if _, voted := r.Votes[voter.ID]; voted {
		return nil, ErrAlreadyVoted
	}

	var q *Question
	for _, displayed := range r.DisplayedQuestions {
		if displayed.ID == questionID {
			q = displayed
			break
		}
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}
	if q.AuthorID == voter.ID {
		return nil, ErrOwnQuestion
	}

	r.Votes[voter.ID] = questionID
	r.Touch()

	return q, nil
}

// AllVoted reports whether every active player has voted this round
func (r *Room) AllVoted() bool {
	for _, p := range r.ActivePlayers() {
		if _, voted := r.Votes[p.ID]; !voted {
			return false
		}
	}
	return len(r.ActivePlayers()) > 0
}

// AwardPoints adds points to a player's score, keeping the Scores map and
// the Player mirror in sync
func (r *Room) AwardPoints(playerID string, points int) {
	r.Scores[playerID] += points
	if p := r.FindByID(playerID); p != nil {
		p.Score = r.Scores[playerID]
	}
}

// ClearRoundState drops the round-scoped data before the next round starts.
// Accumulated questions are kept for end-game bonuses.
func (r *Room) ClearRoundState() {
	r.Votes = make(map[string]string)
	r.SelectedQuestion = nil
	r.DisplayedQuestions = nil
	r.GuessResolved = false
}

// ScoresSnapshot returns a copy of the score table. Payloads handed to the
// broadcast gateway are marshalled outside the room lock, so they must not
// reference the live map.
func (r *Room) ScoresSnapshot() map[string]int {
	scores := make(map[string]int, len(r.Scores))
	for id, score := range r.Scores {
		scores[id] = score
	}
	return scores
}

// Roster returns the client-facing view of every player slot
func (r *Room) Roster() []PlayerInfo {
	roster := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		roster = append(roster, p.Info())
	}
	return roster
}
