package app

import (
	"paranoia/internal/domain"
)

// Identity resolution: mapping a volatile connection id onto a stable
// player record, and migrating connection-scoped references when a player
// comes back on a new connection. Everything here runs under the session
// lock, so a submission or vote racing a reconnect serializes before or
// after the migration, never through the middle of it.

// StoreIdentity pre-associates a connection with a display name before a
// formal join, powering the defensive re-resolution inside submission
// handling
func (s *RoomSession) StoreIdentity(connID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[connID] = name
}

// AttemptReconnect reattaches a dropped player to a new connection. It
// validates first, mutates only on success, and is idempotent: running it
// twice yields the same score and submission/vote status.
func (s *RoomSession) AttemptReconnect(connID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase == domain.PhaseClosed {
		return domain.ErrRoomNotFound
	}
	if err := s.room.ValidateName(name); err != nil {
		return err
	}

	player := s.room.FindByName(name)
	if player == nil {
		return domain.ErrPlayerNotFound
	}

	// The slot is live on another connection that still has a registered
	// client: refuse the takeover.
	if player.Active() && player.ConnID != connID {
		if _, connected := s.clientFor(player.ConnID); connected {
			return domain.ErrNameTaken
		}
	}

	s.migrateLocked(player, connID)
	s.identities[connID] = player.Name
	s.room.Touch()

	s.queueEvent(domain.NewDirectEvent(domain.EventReconnectSuccess, s.room.Code, connID,
		s.reconnectSnapshotLocked(player)))
	s.queueEvent(domain.NewEvent(domain.EventPlayerReconnected, s.room.Code, &domain.RosterPayload{
		PlayerName: player.Name,
		Players:    s.room.Roster(),
	}))

	return nil
}

// resolvePlayerLocked maps a connection to its player, falling back to the
// stored identity when the connection id is not yet bound (a submission
// arriving just before attempt_reconnect completes). A successful fallback
// migrates on the spot.
func (s *RoomSession) resolvePlayerLocked(connID string) *domain.Player {
	if p := s.room.FindByConn(connID); p != nil {
		return p
	}

	name, ok := s.identities[connID]
	if !ok {
		return nil
	}
	p := s.room.FindByName(name)
	if p == nil {
		return nil
	}

	s.migrateLocked(p, connID)
	return p
}

// migrateLocked reassigns every room-scoped reference from the player's old
// connection id to the new one. Durable state (scores, votes, authorship)
// is keyed by the stable player id and needs no rewrite; what moves is the
// connection routing: the player record, the author-side conn id on the
// current round's questions, and host ownership if the host is also a
// player.
func (s *RoomSession) migrateLocked(player *domain.Player, newConnID string) {
	oldConnID := player.ConnID
	player.Reconnect(newConnID)

	for _, q := range s.room.RoundQuestions(s.room.RoundNumber) {
		if q.AuthorID == player.ID {
			q.AuthorConn = newConnID
		}
	}
	if s.room.HostConnID == oldConnID {
		s.room.HostConnID = newConnID
	}
	if oldConnID != newConnID {
		delete(s.identities, oldConnID)
	}

	s.stopGraceTimerLocked(player.ID)
}

// reconnectSnapshotLocked builds the full state snapshot a reconnecting
// player needs to resume: phase, roster, scores, their submission and vote
// status, and the phase-specific extras
func (s *RoomSession) reconnectSnapshotLocked(player *domain.Player) *domain.ReconnectPayload {
	snapshot := &domain.ReconnectPayload{
		Phase:       s.room.Phase,
		Round:       s.room.RoundNumber,
		TotalRounds: s.room.TotalRounds,
		Players:     s.room.Roster(),
		Scores:      s.room.ScoresSnapshot(),
	}

	if s.room.TargetPlayer != nil {
		info := s.room.TargetPlayer.Info()
		snapshot.TargetPlayer = &info
	}

	switch s.room.Phase {
	case domain.PhaseQuestion:
		snapshot.HasSubmitted = s.room.QuestionByAuthor(player.ID, s.room.RoundNumber) != nil
	case domain.PhaseVoting:
		snapshot.HasSubmitted = true
		_, snapshot.HasVoted = s.room.Votes[player.ID]
		snapshot.VotingQuestions = make([]domain.QuestionView, 0, len(s.room.DisplayedQuestions))
		for _, q := range s.room.DisplayedQuestions {
			if q.AuthorID == player.ID {
				continue
			}
			q.DisplayCount++
			snapshot.VotingQuestions = append(snapshot.VotingQuestions, q.View())
		}
	case domain.PhaseGuessing:
		snapshot.HasSubmitted = true
		if s.room.SelectedQuestion != nil {
			view := s.room.SelectedQuestion.View()
			snapshot.SelectedQuestion = &view
			snapshot.QuestionAuthorID = s.room.SelectedQuestion.AuthorID
		}
	}

	return snapshot
}

// abandonSlot fires when the reconnection grace window elapses: the
// reserved slot is dropped from the roster (the score entry is retained)
// and any transition the absence was blocking is re-checked
func (s *RoomSession) abandonSlot(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room.Phase == domain.PhaseClosed {
		return
	}

	player := s.room.FindByID(playerID)
	if player == nil || player.Active() {
		return
	}

	delete(s.graceTimers, playerID)
	s.room.RemovePlayer(playerID)

	s.logger.Info("player slot abandoned", "roomCode", s.room.Code, "player", player.Name)

	s.queueEvent(domain.NewEvent(domain.EventPlayerRemoved, s.room.Code, &domain.RosterPayload{
		PlayerName: player.Name,
		Players:    s.room.Roster(),
	}))

	active := s.room.ActivePlayers()
	if len(active) == 0 && s.room.Phase.InRound() {
		s.closeRoomLocked("all players disconnected")
		return
	}

	// The departed slot may have been the last thing blocking a transition.
	switch s.room.Phase {
	case domain.PhaseQuestion:
		s.checkSubmissionProgressLocked()
	case domain.PhaseVoting:
		if s.room.AllVoted() {
			s.finalizeVotingLocked()
		}
	}
}
