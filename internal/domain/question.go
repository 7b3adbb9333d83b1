package domain

import (
	"time"

	"github.com/google/uuid"
)

// Question represents one submitted prompt. AuthorID is the author's stable
// player identity; AuthorConn is the author's connection id at display time
// and is migrated by the identity resolver when the author reconnects.
type Question struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	AuthorID      string    `json:"authorId"`
	AuthorConn    string    `json:"-"`
	AuthorName    string    `json:"authorName"`
	TargetName    string    `json:"targetPlayer"`
	Round         int       `json:"round"`
	Synthetic     bool      `json:"isDefault"` // Auto-filled on submission timeout
	DisplayNumber int       `json:"number,omitempty"`
	DisplayCount  int       `json:"-"`
	SubmittedAt   time.Time `json:"-"`
}

// NewQuestion creates a question authored by the given player for the given round
func NewQuestion(author *Player, text, targetName string, round int, synthetic bool) *Question {
	return &Question{
		ID:          uuid.New().String(),
		Text:        text,
		AuthorID:    author.ID,
		AuthorConn:  author.ConnID,
		AuthorName:  author.Name,
		TargetName:  targetName,
		Round:       round,
		Synthetic:   synthetic,
		SubmittedAt: time.Now(),
	}
}

// QuestionView is the client-facing view of a displayed question
type QuestionView struct {
	ID         string `json:"id"`
	Number     int    `json:"number"`
	Text       string `json:"text"`
	TargetName string `json:"targetPlayer"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
}

// View converts a Question to its client-facing view
func (q *Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Number:     q.DisplayNumber,
		Text:       q.Text,
		TargetName: q.TargetName,
		AuthorID:   q.AuthorID,
		AuthorName: q.AuthorName,
	}
}
