package ws

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgCreateRoom       MessageType = "create_room"
	MsgJoinRoom         MessageType = "join_room"
	MsgStartGame        MessageType = "start_game"
	MsgSubmitQuestion   MessageType = "submit_question"
	MsgSubmitVote       MessageType = "submit_vote"
	MsgMakeGuess        MessageType = "make_guess"
	MsgSkipGuess        MessageType = "skip_guess"
	MsgAttemptReconnect MessageType = "attempt_reconnect"
	MsgStoreIdentity    MessageType = "store_identity"
	MsgPing             MessageType = "ping"
)

// Server → Client message types that are not room notifications
const (
	MsgError           MessageType = "error"
	MsgJoinError       MessageType = "join_error"
	MsgQuestionError   MessageType = "question_error"
	MsgVoteError       MessageType = "vote_error"
	MsgReconnectFailed MessageType = "reconnect_failed"
	MsgPong            MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload any) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Client message payloads

// CreateRoomPayload is the payload for create_room
type CreateRoomPayload struct {
	Rounds int `json:"rounds"`
}

// JoinRoomPayload is the payload for join_room, attempt_reconnect and
// store_identity
type JoinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// SubmitQuestionPayload is the payload for submit_question
type SubmitQuestionPayload struct {
	RoomCode     string `json:"roomCode"`
	Question     string `json:"question"`
	TargetPlayer string `json:"targetPlayer"`
}

// SubmitVotePayload is the payload for submit_vote
type SubmitVotePayload struct {
	RoomCode   string `json:"roomCode"`
	QuestionID string `json:"questionId"`
}

// MakeGuessPayload is the payload for make_guess
type MakeGuessPayload struct {
	RoomCode        string `json:"roomCode"`
	GuessedPlayerID string `json:"guessedPlayerId"`
}

// RoomOnlyPayload is the payload for messages carrying just a room code
type RoomOnlyPayload struct {
	RoomCode string `json:"roomCode"`
}

// ErrorPayload is the payload for error messages
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage   = "INVALID_MESSAGE"
	ErrCodeRoomNotFound     = "ROOM_NOT_FOUND"
	ErrCodeRoomFull         = "ROOM_FULL"
	ErrCodeGameInProgress   = "GAME_IN_PROGRESS"
	ErrCodeInvalidName      = "INVALID_NAME"
	ErrCodeNameTaken        = "NAME_TAKEN"
	ErrCodeInvalidQuestion  = "INVALID_QUESTION"
	ErrCodeAlreadySubmitted = "ALREADY_SUBMITTED"
	ErrCodeAlreadyVoted     = "ALREADY_VOTED"
	ErrCodeOwnQuestion      = "OWN_QUESTION"
	ErrCodeInvalidAction    = "INVALID_ACTION"
	ErrCodePlayerNotFound   = "PLAYER_NOT_FOUND"
	ErrCodeReconnectFailed  = "RECONNECT_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)
