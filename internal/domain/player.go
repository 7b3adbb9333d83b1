package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a participant in a room. ID is the stable logical
// identity assigned at join time; ConnID is the volatile transport-level
// connection identifier, reassigned by the identity resolver on reconnect.
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ConnID       string    `json:"-"`
	Disconnected bool      `json:"disconnected"`
	Score        int       `json:"score"`
	Snoops       int       `json:"-"` // Correct guesses, counted for the end-game bonus
	JoinedAt     time.Time `json:"-"`
}

// NewPlayer creates a new player bound to the given connection
func NewPlayer(connID, name string) *Player {
	return &Player{
		ID:       uuid.New().String(),
		Name:     name,
		ConnID:   connID,
		JoinedAt: time.Now(),
	}
}

// Active reports whether the player currently holds a live connection.
func (p *Player) Active() bool {
	return !p.Disconnected
}

// Disconnect marks the player's slot as reserved but inactive
func (p *Player) Disconnect() {
	p.Disconnected = true
}

// Reconnect reactivates the player on the given connection
func (p *Player) Reconnect(connID string) {
	p.ConnID = connID
	p.Disconnected = false
}

// PlayerInfo is the client-facing view of a player
type PlayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Score        int    `json:"score"`
	Disconnected bool   `json:"disconnected"`
}

// Info converts a Player to its client-facing view
func (p *Player) Info() PlayerInfo {
	return PlayerInfo{
		ID:           p.ID,
		Name:         p.Name,
		Score:        p.Score,
		Disconnected: p.Disconnected,
	}
}
