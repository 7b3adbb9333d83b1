package domain

import (
	"errors"
	"testing"
)

func newTestRoom() *Room {
	return NewRoom("ABCD", "host-conn", 3, DefaultSettings())
}

func mustAddPlayer(t *testing.T, r *Room, connID, name string) *Player {
	t.Helper()
	p, err := r.AddPlayer(connID, name)
	if err != nil {
		t.Fatalf("AddPlayer(%q, %q): %v", connID, name, err)
	}
	return p
}

func TestNewRoomClampsRounds(t *testing.T) {
	settings := DefaultSettings()

	tests := []struct {
		name   string
		rounds int
		want   int
	}{
		{"below minimum", 1, settings.MinRounds},
		{"within bounds", 5, 5},
		{"above maximum", 99, settings.MaxRounds},
		{"zero", 0, settings.MinRounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoom("ABCD", "host", tt.rounds, settings)
			if r.TotalRounds != tt.want {
				t.Errorf("TotalRounds = %d, want %d", r.TotalRounds, tt.want)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	r := newTestRoom()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid", "alice", nil},
		{"empty", "", ErrEmptyName},
		{"whitespace only", "   ", ErrEmptyName},
		{"too long", "abcdefghijklmnop", ErrNameTooLong},
		{"contains digit", "alice2", ErrNameHasDigits},
		{"digit in middle", "al1ce", ErrNameHasDigits},
		{"max length", "abcdefghijklmno", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateName(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestAddPlayer(t *testing.T) {
	t.Run("rejects duplicate active name case-insensitively", func(t *testing.T) {
		r := newTestRoom()
		mustAddPlayer(t, r, "c1", "alice")

		if _, err := r.AddPlayer("c2", "ALICE"); !errors.Is(err, ErrNameTaken) {
			t.Errorf("duplicate name error = %v, want ErrNameTaken", err)
		}
	})

	t.Run("allows reusing a disconnected player's name", func(t *testing.T) {
		r := newTestRoom()
		p := mustAddPlayer(t, r, "c1", "alice")
		p.Disconnect()

		if _, err := r.AddPlayer("c2", "alice"); err != nil {
			t.Errorf("join over disconnected slot: %v", err)
		}
	})

	t.Run("rejects joins after the game starts", func(t *testing.T) {
		r := newTestRoom()
		r.Phase = PhaseQuestion

		if _, err := r.AddPlayer("c1", "alice"); !errors.Is(err, ErrGameInProgress) {
			t.Errorf("mid-game join error = %v, want ErrGameInProgress", err)
		}
	})

	t.Run("rejects joins past the player cap", func(t *testing.T) {
		r := newTestRoom()
		names := []string{"aa", "bb", "cc", "dd", "ee", "ff", "gg", "hh", "ii", "jj"}
		for _, name := range names {
			mustAddPlayer(t, r, name, name)
		}

		if _, err := r.AddPlayer("c-extra", "kk"); !errors.Is(err, ErrRoomFull) {
			t.Errorf("over-cap join error = %v, want ErrRoomFull", err)
		}
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		r := newTestRoom()
		p := mustAddPlayer(t, r, "c1", "  alice  ")
		if p.Name != "alice" {
			t.Errorf("stored name = %q, want %q", p.Name, "alice")
		}
	})

	t.Run("initializes the score entry", func(t *testing.T) {
		r := newTestRoom()
		p := mustAddPlayer(t, r, "c1", "alice")
		if score, ok := r.Scores[p.ID]; !ok || score != 0 {
			t.Errorf("Scores[%s] = %d, %v; want 0, true", p.ID, score, ok)
		}
	})
}

func TestRemovePlayerRetainsScore(t *testing.T) {
	r := newTestRoom()
	p := mustAddPlayer(t, r, "c1", "alice")
	r.AwardPoints(p.ID, 4)

	r.RemovePlayer(p.ID)

	if r.FindByID(p.ID) != nil {
		t.Error("player still on roster after removal")
	}
	if r.Scores[p.ID] != 4 {
		t.Errorf("Scores[%s] = %d after removal, want 4", p.ID, r.Scores[p.ID])
	}
}

func TestAddQuestion(t *testing.T) {
	setup := func(t *testing.T) (*Room, *Player, *Player) {
		r := newTestRoom()
		alice := mustAddPlayer(t, r, "c1", "alice")
		bob := mustAddPlayer(t, r, "c2", "bob")
		r.Phase = PhaseQuestion
		r.RoundNumber = 1
		return r, alice, bob
	}

	t.Run("one question per author per round", func(t *testing.T) {
		r, alice, _ := setup(t)
		if _, err := r.AddQuestion(alice, "who snores loudest", "bob", false); err != nil {
			t.Fatalf("first submission: %v", err)
		}
		if _, err := r.AddQuestion(alice, "another one", "bob", false); !errors.Is(err, ErrAlreadySubmitted) {
			t.Errorf("second submission error = %v, want ErrAlreadySubmitted", err)
		}
		if got := len(r.RoundQuestions(1)); got != 1 {
			t.Errorf("round questions = %d, want 1", got)
		}
	})

	t.Run("same author may submit again next round", func(t *testing.T) {
		r, alice, _ := setup(t)
		if _, err := r.AddQuestion(alice, "round one", "bob", false); err != nil {
			t.Fatalf("round one submission: %v", err)
		}
		r.RoundNumber = 2
		if _, err := r.AddQuestion(alice, "round two", "bob", false); err != nil {
			t.Errorf("round two submission: %v", err)
		}
	})

	t.Run("rejects empty and oversized text", func(t *testing.T) {
		r, alice, _ := setup(t)
		if _, err := r.AddQuestion(alice, "   ", "bob", false); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("empty text error = %v, want ErrEmptyQuestion", err)
		}

		long := make([]byte, r.Settings.MaxQuestionLength+1)
		for i := range long {
			long[i] = 'x'
		}
		if _, err := r.AddQuestion(alice, string(long), "bob", false); !errors.Is(err, ErrQuestionTooLong) {
			t.Errorf("oversized text error = %v, want ErrQuestionTooLong", err)
		}
	})

	t.Run("rejects submissions outside the question phase", func(t *testing.T) {
		r, alice, _ := setup(t)
		r.Phase = PhaseVoting
		if _, err := r.AddQuestion(alice, "too late", "bob", false); !errors.Is(err, ErrWrongPhase) {
			t.Errorf("wrong-phase error = %v, want ErrWrongPhase", err)
		}
	})

	t.Run("question carries stable author identity", func(t *testing.T) {
		r, alice, _ := setup(t)
		q, err := r.AddQuestion(alice, "who is it", "bob", false)
		if err != nil {
			t.Fatalf("AddQuestion: %v", err)
		}
		if q.AuthorID != alice.ID || q.AuthorConn != alice.ConnID {
			t.Errorf("author refs = (%s, %s), want (%s, %s)", q.AuthorID, q.AuthorConn, alice.ID, alice.ConnID)
		}
	})
}

func TestRecordVote(t *testing.T) {
	setup := func(t *testing.T) (*Room, *Player, *Player, *Question, *Question) {
		r := newTestRoom()
		alice := mustAddPlayer(t, r, "c1", "alice")
		bob := mustAddPlayer(t, r, "c2", "bob")
		r.Phase = PhaseQuestion
		r.RoundNumber = 1
		qa, _ := r.AddQuestion(alice, "alice asks", "bob", false)
		qb, _ := r.AddQuestion(bob, "bob asks", "alice", false)
		r.Phase = PhaseVoting
		r.DisplayedQuestions = []*Question{qa, qb}
		return r, alice, bob, qa, qb
	}

	t.Run("rejects voting for your own question", func(t *testing.T) {
		r, alice, _, qa, _ := setup(t)
		if _, err := r.RecordVote(alice, qa.ID); !errors.Is(err, ErrOwnQuestion) {
			t.Errorf("own-question vote error = %v, want ErrOwnQuestion", err)
		}
	})

	t.Run("rejects double votes", func(t *testing.T) {
		r, alice, _, _, qb := setup(t)
		if _, err := r.RecordVote(alice, qb.ID); err != nil {
			t.Fatalf("first vote: %v", err)
		}
		if _, err := r.RecordVote(alice, qb.ID); !errors.Is(err, ErrAlreadyVoted) {
			t.Errorf("second vote error = %v, want ErrAlreadyVoted", err)
		}
	})

	t.Run("rejects unknown question ids", func(t *testing.T) {
		r, alice, _, _, _ := setup(t)
		if _, err := r.RecordVote(alice, "nope"); !errors.Is(err, ErrQuestionNotFound) {
			t.Errorf("unknown question error = %v, want ErrQuestionNotFound", err)
		}
	})

	t.Run("rejects ids from an earlier round", func(t *testing.T) {
		r, alice, bob, _, _ := setup(t)
		// Questions accumulate for the room's lifetime; a stale id must
		// not score against the current round.
		stale := &Question{ID: "stale", AuthorID: bob.ID, Text: "old round", Round: 0}
		r.Questions = append(r.Questions, stale)

		if _, err := r.RecordVote(alice, stale.ID); !errors.Is(err, ErrQuestionNotFound) {
			t.Errorf("stale-round vote error = %v, want ErrQuestionNotFound", err)
		}
		if len(r.Votes) != 0 {
			t.Error("stale vote was recorded")
		}
	})

	t.Run("rejects current-round questions outside the displayed pool", func(t *testing.T) {
		r, alice, bob, _, _ := setup(t)
		unsampled := &Question{ID: "unsampled", AuthorID: bob.ID, Text: "not shown", Round: r.RoundNumber}
		r.Questions = append(r.Questions, unsampled)

		if _, err := r.RecordVote(alice, unsampled.ID); !errors.Is(err, ErrQuestionNotFound) {
			t.Errorf("unsampled vote error = %v, want ErrQuestionNotFound", err)
		}
	})

	t.Run("rejects votes outside the voting phase", func(t *testing.T) {
		r, alice, _, _, qb := setup(t)
		r.Phase = PhaseGuessing
		if _, err := r.RecordVote(alice, qb.ID); !errors.Is(err, ErrWrongPhase) {
			t.Errorf("wrong-phase vote error = %v, want ErrWrongPhase", err)
		}
	})

	t.Run("AllVoted tracks active players", func(t *testing.T) {
		r, alice, bob, qa, qb := setup(t)
		if r.AllVoted() {
			t.Error("AllVoted true before any votes")
		}
		if _, err := r.RecordVote(alice, qb.ID); err != nil {
			t.Fatalf("alice vote: %v", err)
		}
		if r.AllVoted() {
			t.Error("AllVoted true with one vote outstanding")
		}
		if _, err := r.RecordVote(bob, qa.ID); err != nil {
			t.Fatalf("bob vote: %v", err)
		}
		if !r.AllVoted() {
			t.Error("AllVoted false after everyone voted")
		}
	})
}

func TestAwardPointsKeepsMirrorInSync(t *testing.T) {
	r := newTestRoom()
	p := mustAddPlayer(t, r, "c1", "alice")

	r.AwardPoints(p.ID, 3)
	r.AwardPoints(p.ID, 2)

	if r.Scores[p.ID] != 5 {
		t.Errorf("Scores = %d, want 5", r.Scores[p.ID])
	}
	if p.Score != 5 {
		t.Errorf("Player.Score = %d, want 5", p.Score)
	}
}

func TestClearRoundStateKeepsAccumulatedQuestions(t *testing.T) {
	r := newTestRoom()
	alice := mustAddPlayer(t, r, "c1", "alice")
	mustAddPlayer(t, r, "c2", "bob")
	r.Phase = PhaseQuestion
	r.RoundNumber = 1
	q, _ := r.AddQuestion(alice, "who", "bob", false)

	r.Votes["x"] = q.ID
	r.SelectedQuestion = q
	r.DisplayedQuestions = []*Question{q}
	r.GuessResolved = true

	r.ClearRoundState()

	if len(r.Votes) != 0 || r.SelectedQuestion != nil || r.DisplayedQuestions != nil || r.GuessResolved {
		t.Error("round-scoped state survived ClearRoundState")
	}
	if len(r.Questions) != 1 {
		t.Errorf("accumulated questions = %d, want 1", len(r.Questions))
	}
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from Phase
		to   Phase
		ok   bool
	}{
		{PhaseWaiting, PhaseQuestion, true},
		{PhaseQuestion, PhaseVoting, true},
		{PhaseVoting, PhaseGuessing, true},
		{PhaseGuessing, PhaseQuestion, true},
		{PhaseGuessing, PhaseFinished, true},
		{PhaseFinished, PhaseClosed, true},
		{PhaseWaiting, PhaseVoting, false},
		{PhaseVoting, PhaseQuestion, false},
		{PhaseClosed, PhaseWaiting, false},
		{PhaseFinished, PhaseQuestion, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
