package app

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"paranoia/internal/domain"
)

// ClientConnection is the broadcast gateway's view of one connected client.
// Send must be non-blocking from the engine's perspective; delivery failures
// are not the engine's concern.
type ClientConnection interface {
	Send(message any) error
	ConnID() string
	Close() error
}

// RoomSession owns one room. Every operation, client-triggered or
// timer-triggered, runs under the session mutex, so events for the same room
// execute in a strict total order while different rooms proceed
// independently.
type RoomSession struct {
	room   *domain.Room
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger

	clients   map[string]ClientConnection // connID -> client
	clientsMu sync.RWMutex

	identities map[string]string // connID -> stored player name

	// Timers. At most one live timer of each kind; every phase exit cancels
	// whatever it supersedes, and each callback re-checks phase and
	// generation before touching the room.
	submitTimer  *time.Timer
	votingTimer  *time.Timer
	advanceTimer *time.Timer
	expiryTimer  *time.Timer
	graceTimers  map[string]*time.Timer // playerID -> slot-abandon timer

	gen int // bumped on every phase transition; stale callbacks bail out

	events  chan *domain.Event
	done    chan struct{}
	once    sync.Once
	onClose func(code string)
}

// NewRoomSession creates a session around a room. The random source is
// injected so sampling and tie-breaks are deterministic in tests.
func NewRoomSession(room *domain.Room, rng *rand.Rand, logger *slog.Logger, onClose func(code string)) *RoomSession {
	s := &RoomSession{
		room:        room,
		rng:         rng,
		logger:      logger,
		clients:     make(map[string]ClientConnection),
		identities:  make(map[string]string),
		graceTimers: make(map[string]*time.Timer),
		events:      make(chan *domain.Event, 100),
		done:        make(chan struct{}),
		onClose:     onClose,
	}

	go s.eventLoop()

	return s
}

// Code returns the room code
func (s *RoomSession) Code() string {
	return s.room.Code
}

// Phase returns the current phase
func (s *RoomSession) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Phase
}

// TotalRounds returns the room's configured round count
func (s *RoomSession) TotalRounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.TotalRounds
}

// PlayerCount returns the number of player slots, active or reserved
func (s *RoomSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.room.Players)
}

// CanJoin reports whether a new player could join right now
func (s *RoomSession) CanJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Phase == domain.PhaseWaiting &&
		len(s.room.ActivePlayers()) < s.room.Settings.MaxPlayers
}

// IdleSince reports whether the room has seen no activity for the given
// duration
func (s *RoomSession) IdleSince(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.room.LastActive) > d
}

// RegisterClient binds a client connection for broadcast delivery
func (s *RoomSession) RegisterClient(client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ConnID()] = client
}

// UnregisterClient removes a client connection
func (s *RoomSession) UnregisterClient(connID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, connID)
}

func (s *RoomSession) clientFor(connID string) (ClientConnection, bool) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	client, ok := s.clients[connID]
	return client, ok
}

// Join adds a player, or reactivates a disconnected slot of the same name
// when the game is already running
func (s *RoomSession) Join(connID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase != domain.PhaseWaiting {
		existing := s.room.FindByName(name)
		if existing == nil || existing.Active() {
			return domain.ErrGameInProgress
		}
		// Mid-game rejoin of a reserved slot.
		if err := s.room.ValidateName(name); err != nil {
			return err
		}
		s.migrateLocked(existing, connID)
		s.identities[connID] = existing.Name
		s.queueEvent(domain.NewDirectEvent(domain.EventJoinSuccess, s.room.Code, connID, nil))
		s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.Code, &domain.RosterPayload{
			PlayerName: existing.Name,
			Players:    s.room.Roster(),
		}))
		return nil
	}

	player, err := s.room.AddPlayer(connID, name)
	if err != nil {
		return err
	}

	s.identities[connID] = player.Name
	s.queueEvent(domain.NewDirectEvent(domain.EventJoinSuccess, s.room.Code, connID, nil))
	s.queueEvent(domain.NewEvent(domain.EventPlayerJoined, s.room.Code, &domain.RosterPayload{
		PlayerName: player.Name,
		Players:    s.room.Roster(),
	}))

	return nil
}

// HandleDisconnect reacts to a transport-level drop. The host going away
// tears the room down; a player's slot is reserved for the grace window.
func (s *RoomSession) HandleDisconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase == domain.PhaseClosed {
		return
	}

	delete(s.identities, connID)

	if s.room.HostConnID == connID {
		s.closeRoomLocked("host disconnected")
		return
	}

	player := s.room.FindByConn(connID)
	if player == nil {
		return
	}

	if s.room.Phase == domain.PhaseWaiting {
		s.room.RemovePlayer(player.ID)
		s.queueEvent(domain.NewEvent(domain.EventPlayerRemoved, s.room.Code, &domain.RosterPayload{
			PlayerName: player.Name,
			Players:    s.room.Roster(),
		}))
		return
	}

	player.Disconnect()
	s.queueEvent(domain.NewEvent(domain.EventPlayerDisconnected, s.room.Code, &domain.RosterPayload{
		PlayerName: player.Name,
		Players:    s.room.Roster(),
	}))

	playerID := player.ID
	s.stopGraceTimerLocked(playerID)
	s.graceTimers[playerID] = time.AfterFunc(s.room.Settings.ReconnectGrace, func() {
		s.abandonSlot(playerID)
	})

	// The departed player may have been the last thing blocking a
	// transition; the voting deadline bounds its phase, but the question
	// phase can stall until the grace window otherwise.
	if len(s.room.ActivePlayers()) > 0 {
		switch s.room.Phase {
		case domain.PhaseQuestion:
			s.checkSubmissionProgressLocked()
		case domain.PhaseVoting:
			if s.room.AllVoted() {
				s.finalizeVotingLocked()
			}
		}
	}
}

// StartGame begins round one. Host only; callers that are not the host get
// ErrNotHost, which the transport ignores silently.
func (s *RoomSession) StartGame(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connID != s.room.HostConnID {
		return domain.ErrNotHost
	}
	if s.room.Phase != domain.PhaseWaiting {
		return domain.ErrWrongPhase
	}

	active := s.room.ActivePlayers()
	if len(active) < 2 {
		return domain.ErrNotEnoughPlayers
	}

	s.room.InitialRoster = make([]string, 0, len(active))
	for _, p := range active {
		s.room.InitialRoster = append(s.room.InitialRoster, p.Name)
	}

	s.gen++
	s.room.Phase = domain.PhaseQuestion
	s.room.RoundNumber = 1
	s.room.TargetPlayer = active[s.rng.Intn(len(active))]
	s.room.Touch()

	s.logger.Info("game started",
		"roomCode", s.room.Code,
		"players", len(active),
		"rounds", s.room.TotalRounds,
	)

	s.queueEvent(domain.NewEvent(domain.EventGameStarted, s.room.Code, &domain.GameStartedPayload{
		Round:        s.room.RoundNumber,
		TargetPlayer: s.room.TargetPlayer.Info(),
	}))

	return nil
}

// SubmitQuestion records one player's submission for the current round
func (s *RoomSession) SubmitQuestion(connID, text, targetName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase != domain.PhaseQuestion {
		return domain.ErrWrongPhase
	}

	author := s.resolvePlayerLocked(connID)
	if author == nil {
		return domain.ErrPlayerNotFound
	}

	if _, err := s.room.AddQuestion(author, text, targetName, false); err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(domain.EventQuestionSubmitted, s.room.Code, &domain.QuestionSubmittedPayload{
		PlayerName: author.Name,
	}))

	s.checkSubmissionProgressLocked()

	return nil
}

// checkSubmissionProgressLocked advances to voting when every active player
// has submitted, and otherwise arms the submission countdown once at least
// half of them have
func (s *RoomSession) checkSubmissionProgressLocked() {
	if s.room.AllSubmitted() {
		s.advanceToVotingLocked()
		return
	}

	active := len(s.room.ActivePlayers())
	submitted := len(s.room.RoundQuestions(s.room.RoundNumber))
	if s.submitTimer == nil && submitted >= (active+1)/2 {
		s.startSubmissionCountdownLocked()
	}
}

func (s *RoomSession) startSubmissionCountdownLocked() {
	d := s.room.Settings.SubmissionCountdown
	gen := s.gen
	s.submitTimer = time.AfterFunc(d, func() {
		s.submissionTimeout(gen)
	})

	s.queueEvent(domain.NewEvent(domain.EventSubmissionCountdown, s.room.Code, &domain.CountdownPayload{
		Seconds:  int(d.Seconds()),
		Deadline: time.Now().Add(d),
	}))
}

// submissionTimeout fires when the submission countdown elapses: every
// non-submitting active player receives one synthesized question authored in
// their name, then the room advances
func (s *RoomSession) submissionTimeout(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.room.Phase != domain.PhaseQuestion {
		return
	}
	s.submitTimer = nil

	active := s.room.ActivePlayers()
	for _, p := range active {
		if s.room.QuestionByAuthor(p.ID, s.room.RoundNumber) != nil {
			continue
		}
		text := PickDefaultQuestion(s.rng)
		target := s.randomOtherPlayerLocked(p)
		if _, err := s.room.AddQuestion(p, text, target, true); err != nil {
			s.logger.Warn("failed to synthesize question",
				"roomCode", s.room.Code, "player", p.Name, "error", err)
			continue
		}
		s.queueEvent(domain.NewEvent(domain.EventQuestionSubmitted, s.room.Code, &domain.QuestionSubmittedPayload{
			PlayerName: p.Name,
		}))
	}

	s.advanceToVotingLocked()
}

// randomOtherPlayerLocked picks a target name among active players other
// than the given one
func (s *RoomSession) randomOtherPlayerLocked(exclude *domain.Player) string {
	candidates := make([]*domain.Player, 0)
	for _, p := range s.room.ActivePlayers() {
		if p.ID != exclude.ID {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return exclude.Name
	}
	return candidates[s.rng.Intn(len(candidates))].Name
}

// advanceToVotingLocked samples the voting pool, hands out display numbers
// and starts the voting countdown. The host receives the unfiltered pool;
// each player receives it with their own question removed.
func (s *RoomSession) advanceToVotingLocked() {
	if s.room.Phase != domain.PhaseQuestion {
		return
	}

	if s.submitTimer != nil {
		s.submitTimer.Stop()
		s.submitTimer = nil
		s.queueEvent(domain.NewEvent(domain.EventCountdownCancelled, s.room.Code, nil))
	}

	pool := s.room.RoundQuestions(s.room.RoundNumber)
	if len(pool) == 0 {
		return
	}
	if len(pool) > 6 {
		sampled := make([]*domain.Question, 0, 6)
		for _, idx := range s.rng.Perm(len(pool))[:6] {
			sampled = append(sampled, pool[idx])
		}
		pool = sampled
	}

	for i, q := range pool {
		q.DisplayNumber = i + 1
		q.DisplayCount++
	}
	s.room.DisplayedQuestions = pool

	s.gen++
	s.room.Phase = domain.PhaseVoting
	s.room.Touch()

	d := s.room.Settings.VotingCountdown
	gen := s.gen
	s.votingTimer = time.AfterFunc(d, func() {
		s.votingTimeout(gen)
	})

	deadline := time.Now().Add(d)
	seconds := int(d.Seconds())

	full := make([]domain.QuestionView, 0, len(pool))
	for _, q := range pool {
		full = append(full, q.View())
	}

	s.queueEvent(domain.NewDirectEvent(domain.EventVotingPhase, s.room.Code, s.room.HostConnID, &domain.VotingPhasePayload{
		Questions: full,
		Seconds:   seconds,
		Deadline:  deadline,
	}))

	for _, p := range s.room.ActivePlayers() {
		filtered := make([]domain.QuestionView, 0, len(pool))
		for _, q := range pool {
			if q.AuthorID == p.ID {
				continue
			}
			filtered = append(filtered, q.View())
		}
		s.queueEvent(domain.NewDirectEvent(domain.EventVotingPhase, s.room.Code, p.ConnID, &domain.VotingPhasePayload{
			Questions: filtered,
			Seconds:   seconds,
			Deadline:  deadline,
		}))
	}
}

func (s *RoomSession) votingTimeout(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.room.Phase != domain.PhaseVoting {
		return
	}
	s.votingTimer = nil

	s.finalizeVotingLocked()
}

// SubmitVote records a vote. Votes for non-synthesized questions award their
// author one point immediately; synthesized questions score only at
// finalize.
func (s *RoomSession) SubmitVote(connID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase != domain.PhaseVoting {
		return domain.ErrWrongPhase
	}

	voter := s.resolvePlayerLocked(connID)
	if voter == nil {
		return domain.ErrPlayerNotFound
	}

	q, err := s.room.RecordVote(voter, questionID)
	if err != nil {
		return err
	}

	if !q.Synthetic {
		s.room.AwardPoints(q.AuthorID, 1)
	}

	s.queueEvent(domain.NewEvent(domain.EventVoteReceived, s.room.Code, &domain.VoteReceivedPayload{
		VotesCount: len(s.room.Votes),
		Players:    s.room.Roster(),
	}))

	if s.room.AllVoted() {
		s.finalizeVotingLocked()
	}

	return nil
}

// finalizeVotingLocked tallies the round, selects the winning question and
// enters the guessing phase. Completion and timeout both land here; the
// phase guard makes the race benign.
func (s *RoomSession) finalizeVotingLocked() {
	if s.room.Phase != domain.PhaseVoting {
		return
	}

	if s.votingTimer != nil {
		s.votingTimer.Stop()
		s.votingTimer = nil
	}

	tally := domain.TallyVotes(s.room.Votes)
	winner := domain.SelectWinner(tally, s.room.DisplayedQuestions, s.rng)
	if winner == nil {
		s.logger.Error("no question to select", "roomCode", s.room.Code)
		s.closeRoomLocked("internal error")
		return
	}

	// Synthesized questions convert their votes to points only now.
	if winner.Synthetic {
		s.room.AwardPoints(winner.AuthorID, tally[winner.ID])
	}

	s.room.SelectedQuestion = winner
	s.room.Votes = make(map[string]string)

	s.gen++
	s.room.Phase = domain.PhaseGuessing
	s.room.Touch()

	s.queueEvent(domain.NewEvent(domain.EventGuessingPhase, s.room.Code, &domain.GuessingPhasePayload{
		Question:     winner.Text,
		TargetPlayer: s.room.TargetPlayer.Info(),
		AuthorID:     winner.AuthorID,
	}))
}

// MakeGuess resolves the target player's authorship guess
func (s *RoomSession) MakeGuess(connID, guessedPlayerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase != domain.PhaseGuessing || s.room.SelectedQuestion == nil {
		return domain.ErrWrongPhase
	}
	if s.room.GuessResolved {
		return domain.ErrAlreadyGuessed
	}

	caller := s.resolvePlayerLocked(connID)
	if caller == nil {
		return domain.ErrPlayerNotFound
	}
	if s.room.TargetPlayer == nil || caller.ID != s.room.TargetPlayer.ID {
		return domain.ErrNotTarget
	}

	correct := guessedPlayerID == s.room.SelectedQuestion.AuthorID
	s.room.GuessResolved = true

	if correct {
		s.room.AwardPoints(caller.ID, s.room.Settings.BonusCorrectGuess)
		caller.Snoops++
	} else {
		s.room.AwardPoints(s.room.SelectedQuestion.AuthorID, s.room.Settings.BonusWrongGuessAuthor)
	}
	s.room.Touch()

	s.queueEvent(domain.NewEvent(domain.EventGuessResult, s.room.Code, &domain.GuessResultPayload{
		Correct: correct,
	}))

	s.scheduleAdvanceLocked(correct, false)

	return nil
}

// SkipGuess lets the target pass on guessing. The author's consolation
// bonus is configurable and may be zero.
func (s *RoomSession) SkipGuess(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase != domain.PhaseGuessing || s.room.SelectedQuestion == nil {
		return domain.ErrWrongPhase
	}
	if s.room.GuessResolved {
		return domain.ErrAlreadyGuessed
	}

	caller := s.resolvePlayerLocked(connID)
	if caller == nil {
		return domain.ErrPlayerNotFound
	}
	if s.room.TargetPlayer == nil || caller.ID != s.room.TargetPlayer.ID {
		return domain.ErrNotTarget
	}

	s.room.GuessResolved = true
	if s.room.Settings.BonusSkipAuthor != 0 {
		s.room.AwardPoints(s.room.SelectedQuestion.AuthorID, s.room.Settings.BonusSkipAuthor)
	}
	s.room.Touch()

	s.queueEvent(domain.NewEvent(domain.EventPlayerChoice, s.room.Code, &domain.PlayerChoicePayload{
		Choice: "skip",
	}))

	s.scheduleAdvanceLocked(false, true)

	return nil
}

func (s *RoomSession) scheduleAdvanceLocked(correct, skipped bool) {
	gen := s.gen
	s.advanceTimer = time.AfterFunc(s.room.Settings.PostGuessDelay, func() {
		s.advanceRound(gen, correct, skipped)
	})
}

// advanceRound runs after the post-guess delay: clear round-scoped state and
// either start the next round or finish the game
func (s *RoomSession) advanceRound(gen int, correct, skipped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.room.Phase != domain.PhaseGuessing {
		return
	}
	s.advanceTimer = nil

	authorID := ""
	if s.room.SelectedQuestion != nil {
		authorID = s.room.SelectedQuestion.AuthorID
	}

	if s.room.RoundNumber >= s.room.TotalRounds {
		s.finishGameLocked()
		return
	}

	s.queueEvent(domain.NewEvent(domain.EventRoundResults, s.room.Code, &domain.RoundResultsPayload{
		Correct:  correct,
		Skipped:  skipped,
		AuthorID: authorID,
		Players:  s.room.Roster(),
	}))

	s.room.ClearRoundState()
	s.room.RoundNumber++

	active := s.room.ActivePlayers()
	if len(active) == 0 {
		s.closeRoomLocked("all players disconnected")
		return
	}

	s.gen++
	s.room.Phase = domain.PhaseQuestion
	s.room.TargetPlayer = active[s.rng.Intn(len(active))]
	s.room.Touch()

	s.queueEvent(domain.NewEvent(domain.EventNewRound, s.room.Code, &domain.GameStartedPayload{
		Round:        s.room.RoundNumber,
		TargetPlayer: s.room.TargetPlayer.Info(),
	}))
}

// finishGameLocked applies end-of-game bonuses exactly once, broadcasts the
// final standings and arms the idle-room expiry timer
func (s *RoomSession) finishGameLocked() {
	s.gen++
	s.room.Phase = domain.PhaseFinished
	s.room.Touch()

	var bonuses []domain.BonusAward
	if !s.room.BonusesApplied {
		bonuses = domain.EndGameBonuses(s.room, s.room.Settings.BonusEndGame)
		for _, b := range bonuses {
			s.room.AwardPoints(b.PlayerID, b.Points)
		}
		s.room.BonusesApplied = true
	}

	s.logger.Info("game finished", "roomCode", s.room.Code, "rounds", s.room.TotalRounds)

	s.queueEvent(domain.NewEvent(domain.EventGameEnded, s.room.Code, &domain.GameEndedPayload{
		Players:     s.room.Roster(),
		FinalScores: s.room.ScoresSnapshot(),
		Bonuses:     bonuses,
	}))

	gen := s.gen
	s.expiryTimer = time.AfterFunc(s.room.Settings.IdleExpiry, func() {
		s.expire(gen)
	})
}

func (s *RoomSession) expire(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.room.Phase != domain.PhaseFinished {
		return
	}
	s.expiryTimer = nil

	s.closeRoomLocked("room expired")
}

// closeRoomLocked tears the room down: cancel every pending timer, notify
// clients and remove the session from the hub
func (s *RoomSession) closeRoomLocked(reason string) {
	if s.room.Phase == domain.PhaseClosed {
		return
	}

	s.cancelTimersLocked()
	s.gen++
	s.room.Phase = domain.PhaseClosed

	s.logger.Info("room closed", "roomCode", s.room.Code, "reason", reason)

	// Deliver directly: the event loop is about to shut down.
	s.broadcastEvent(domain.NewEvent(domain.EventRoomClosed, s.room.Code, &domain.RoomClosedPayload{
		Reason: reason,
	}))

	if s.onClose != nil {
		s.onClose(s.room.Code)
	}
	s.shutdown()
}

func (s *RoomSession) cancelTimersLocked() {
	for _, t := range []*time.Timer{s.submitTimer, s.votingTimer, s.advanceTimer, s.expiryTimer} {
		if t != nil {
			t.Stop()
		}
	}
	s.submitTimer, s.votingTimer, s.advanceTimer, s.expiryTimer = nil, nil, nil, nil

	for id, t := range s.graceTimers {
		t.Stop()
		delete(s.graceTimers, id)
	}
}

func (s *RoomSession) stopGraceTimerLocked(playerID string) {
	if t, ok := s.graceTimers[playerID]; ok {
		t.Stop()
		delete(s.graceTimers, playerID)
	}
}

// queueEvent hands an event to the broadcast gateway, fire and forget
func (s *RoomSession) queueEvent(event *domain.Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "roomCode", s.room.Code, "type", event.Type)
	}
}

func (s *RoomSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

func (s *RoomSession) broadcastEvent(event *domain.Event) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	if event.ConnID != "" {
		if client, ok := s.clients[event.ConnID]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("failed to send to client", "connID", event.ConnID, "error", err)
			}
		}
		return
	}

	for connID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "connID", connID, "error", err)
		}
	}
}

// Close shuts the session down without a room_closed notification. Used by
// the hub on process shutdown and by the stale sweep.
func (s *RoomSession) Close() {
	s.mu.Lock()
	if s.room.Phase != domain.PhaseClosed {
		s.cancelTimersLocked()
		s.gen++
		s.room.Phase = domain.PhaseClosed
	}
	s.mu.Unlock()

	s.shutdown()
}

// shutdown stops the event loop and drops all client connections
func (s *RoomSession) shutdown() {
	s.once.Do(func() {
		close(s.done)
	})

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}
