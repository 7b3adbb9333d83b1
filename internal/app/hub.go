package app

import (
	crand "crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"

	"paranoia/internal/domain"
)

// RoomCodeLength is the length of every room code
const RoomCodeLength = 4

// RoomCodeChars are the characters room codes are drawn from. Uppercase
// letters only, to keep codes easy to type on phones.
const RoomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RoomHub is the room store: a concurrency-safe registry of sessions keyed
// by room code
type RoomHub struct {
	sessions map[string]*RoomSession
	mu       sync.RWMutex
	settings domain.Settings
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
}

// NewRoomHub creates a new hub and starts its background sweep
func NewRoomHub(settings domain.Settings, logger *slog.Logger) *RoomHub {
	hub := &RoomHub{
		sessions: make(map[string]*RoomSession),
		settings: settings,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go hub.sweepLoop()

	return hub
}

// CreateRoom creates a room owned by the given host connection. Codes are
// generated independently of room content and regenerated on collision.
func (h *RoomHub) CreateRoom(hostConnID string, totalRounds int) (*RoomSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var code string
	for attempts := 0; attempts < 10; attempts++ {
		code = generateRoomCode()
		if _, exists := h.sessions[code]; !exists {
			break
		}
	}
	if _, exists := h.sessions[code]; exists {
		return nil, fmt.Errorf("failed to generate unique room code")
	}

	room := domain.NewRoom(code, hostConnID, totalRounds, h.settings)
	rng := mrand.New(mrand.NewSource(time.Now().UnixNano()))
	session := NewRoomSession(room, rng, h.logger, h.remove)
	h.sessions[code] = session

	h.logger.Info("room created", "roomCode", code, "rounds", room.TotalRounds)

	return session, nil
}

// GetSession returns the session for a room code
func (h *RoomHub) GetSession(code string) (*RoomSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return session, nil
}

// remove drops a session from the registry. Passed to sessions as their
// close callback.
func (h *RoomHub) remove(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[code]; ok {
		delete(h.sessions, code)
		h.logger.Info("room removed", "roomCode", code)
	}
}

// RoomCount returns the number of active rooms
func (h *RoomHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// PlayerCount returns the total number of players across all rooms.
// Sessions are snapshotted first: a closing room takes its own lock and then
// the registry lock, so holding the registry lock across session locks
// would invert that order and wedge both.
func (h *RoomHub) PlayerCount() int {
	h.mu.RLock()
	sessions := make([]*RoomSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.RUnlock()

	total := 0
	for _, session := range sessions {
		total += session.PlayerCount()
	}
	return total
}

// Close shuts down the hub and every session
func (h *RoomHub) Close() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	sessions := make([]*RoomSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.sessions = make(map[string]*RoomSession)
	h.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// generateRoomCode draws a fixed-length code from the room alphabet
func generateRoomCode() string {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(RoomCodeChars))))
		if err != nil {
			code[i] = RoomCodeChars[mrand.Intn(len(RoomCodeChars))]
			continue
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return string(code)
}

// sweepLoop periodically drops rooms that have sat idle far past their
// expiry window, a backstop for expiry timers lost to session shutdown
func (h *RoomHub) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweepStale()
		}
	}
}

func (h *RoomHub) sweepStale() {
	// Same lock discipline as PlayerCount: snapshot, then query.
	h.mu.RLock()
	sessions := make([]*RoomSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mu.RUnlock()

	for _, session := range sessions {
		if session.IdleSince(2 * h.settings.IdleExpiry) {
			h.logger.Info("stale room swept", "roomCode", session.Code())
			h.remove(session.Code())
			session.Close()
		}
	}
}
