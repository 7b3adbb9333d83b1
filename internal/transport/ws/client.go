package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"paranoia/internal/app"
	"paranoia/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256
)

// Client represents a WebSocket client connection. A connection starts
// room-agnostic; it binds to a session on create, join or reconnect.
type Client struct {
	conn    *websocket.Conn
	hub     *app.RoomHub
	connID  string
	session *app.RoomSession
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *app.RoomHub, connID string, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		connID: connID,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// ConnID implements app.ClientConnection
func (c *Client) ConnID() string {
	return c.connID
}

// Send implements app.ClientConnection. It never blocks; a full buffer
// drops the message.
func (c *Client) Send(message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, message dropped", "connID", c.connID)
		return nil
	}
}

// Close implements app.ClientConnection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		if session := c.currentSession(); session != nil {
			session.UnregisterClient(c.connID)
			session.HandleDisconnect(c.connID)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) currentSession() *app.RoomSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// bindSession makes the given session the connection's current room,
// dropping the registration in any previously bound one so a client cannot
// keep receiving an old room's broadcasts after moving on.
func (c *Client) bindSession(session *app.RoomSession) {
	c.mu.Lock()
	prev := c.session
	c.session = session
	c.mu.Unlock()

	if prev != nil && prev != session {
		prev.UnregisterClient(c.connID)
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(MsgError, ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgCreateRoom:
		c.handleCreateRoom(msg.Payload)
	case MsgJoinRoom:
		c.handleJoinRoom(msg.Payload)
	case MsgStartGame:
		c.handleStartGame(msg.Payload)
	case MsgSubmitQuestion:
		c.handleSubmitQuestion(msg.Payload)
	case MsgSubmitVote:
		c.handleSubmitVote(msg.Payload)
	case MsgMakeGuess:
		c.handleMakeGuess(msg.Payload)
	case MsgSkipGuess:
		c.handleSkipGuess(msg.Payload)
	case MsgAttemptReconnect:
		c.handleAttemptReconnect(msg.Payload)
	case MsgStoreIdentity:
		c.handleStoreIdentity(msg.Payload)
	case MsgPing:
		c.Send(NewServerMessage(MsgPong, nil))
	default:
		c.sendError(MsgError, ErrCodeInvalidMessage, "Unknown message type")
	}
}

func (c *Client) handleCreateRoom(raw json.RawMessage) {
	var payload CreateRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(MsgError, ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	session, err := c.hub.CreateRoom(c.connID, payload.Rounds)
	if err != nil {
		c.sendError(MsgError, ErrCodeInternalError, "Failed to create room")
		return
	}

	c.bindSession(session)
	session.RegisterClient(c)

	c.Send(NewServerMessage(domainMsg(domain.EventRoomCreated), &domain.RoomCreatedPayload{
		RoomCode:    session.Code(),
		TotalRounds: session.TotalRounds(),
	}))
}

func (c *Client) handleJoinRoom(raw json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(MsgError, ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		c.sendError(MsgJoinError, ErrCodeRoomNotFound, "Room not found")
		return
	}

	// Register before joining so the direct acknowledgement can be
	// delivered, but roll it back on rejection: a refused caller must not
	// linger in the room's broadcast set.
	session.RegisterClient(c)
	if err := session.Join(c.connID, payload.PlayerName); err != nil {
		session.UnregisterClient(c.connID)
		c.sendError(MsgJoinError, joinErrorCode(err), err.Error())
		return
	}
	c.bindSession(session)
}

func (c *Client) handleStartGame(raw json.RawMessage) {
	var payload RoomOnlyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		return
	}

	// Host-authority and wrong-phase violations are silently ignored.
	if err := session.StartGame(c.connID); err != nil {
		c.logger.Debug("start rejected", "roomCode", payload.RoomCode, "error", err)
	}
}

func (c *Client) handleSubmitQuestion(raw json.RawMessage) {
	var payload SubmitQuestionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(MsgQuestionError, ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		c.sendError(MsgQuestionError, ErrCodeRoomNotFound, "Room not found")
		return
	}

	if err := session.SubmitQuestion(c.connID, payload.Question, payload.TargetPlayer); err != nil {
		switch {
		case errors.Is(err, domain.ErrWrongPhase):
			// Out-of-phase submissions are dropped without complaint.
		case errors.Is(err, domain.ErrAlreadySubmitted):
			c.sendError(MsgQuestionError, ErrCodeAlreadySubmitted, "You have already submitted a question for this round")
		case errors.Is(err, domain.ErrPlayerNotFound):
			c.sendError(MsgQuestionError, ErrCodePlayerNotFound, "Player not found in room")
		case errors.Is(err, domain.ErrQuestionTooLong), errors.Is(err, domain.ErrEmptyQuestion):
			c.sendError(MsgQuestionError, ErrCodeInvalidQuestion, err.Error())
		default:
			c.sendError(MsgQuestionError, ErrCodeInternalError, err.Error())
		}
	}
}

func (c *Client) handleSubmitVote(raw json.RawMessage) {
	var payload SubmitVotePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(MsgVoteError, ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		// Voting for a room that no longer exists is a benign no-op.
		return
	}

	if err := session.SubmitVote(c.connID, payload.QuestionID); err != nil {
		switch {
		case errors.Is(err, domain.ErrWrongPhase):
		case errors.Is(err, domain.ErrAlreadyVoted):
			c.sendError(MsgVoteError, ErrCodeAlreadyVoted, "You have already voted this round")
		case errors.Is(err, domain.ErrOwnQuestion):
			c.sendError(MsgVoteError, ErrCodeOwnQuestion, "Cannot vote for your own question")
		case errors.Is(err, domain.ErrQuestionNotFound):
			c.sendError(MsgVoteError, ErrCodeInvalidAction, "Question not found")
		case errors.Is(err, domain.ErrPlayerNotFound):
			c.sendError(MsgVoteError, ErrCodePlayerNotFound, "Player not found in room")
		default:
			c.sendError(MsgVoteError, ErrCodeInternalError, err.Error())
		}
	}
}

func (c *Client) handleMakeGuess(raw json.RawMessage) {
	var payload MakeGuessPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		return
	}

	if err := session.MakeGuess(c.connID, payload.GuessedPlayerID); err != nil {
		c.logger.Debug("guess rejected", "roomCode", payload.RoomCode, "error", err)
	}
}

func (c *Client) handleSkipGuess(raw json.RawMessage) {
	var payload RoomOnlyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		return
	}

	if err := session.SkipGuess(c.connID); err != nil {
		c.logger.Debug("skip rejected", "roomCode", payload.RoomCode, "error", err)
	}
}

func (c *Client) handleAttemptReconnect(raw json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(MsgReconnectFailed, ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		c.sendError(MsgReconnectFailed, ErrCodeRoomNotFound, "Room no longer exists")
		return
	}

	// Same register-then-roll-back discipline as handleJoinRoom.
	session.RegisterClient(c)
	if err := session.AttemptReconnect(c.connID, payload.PlayerName); err != nil {
		session.UnregisterClient(c.connID)
		switch {
		case errors.Is(err, domain.ErrPlayerNotFound):
			c.sendError(MsgReconnectFailed, ErrCodePlayerNotFound, "Player not found in room")
		case errors.Is(err, domain.ErrNameTaken):
			c.sendError(MsgReconnectFailed, ErrCodeNameTaken, "Name already taken")
		default:
			c.sendError(MsgReconnectFailed, ErrCodeReconnectFailed, err.Error())
		}
		return
	}
	c.bindSession(session)
}

func (c *Client) handleStoreIdentity(raw json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return
	}

	session, err := c.hub.GetSession(payload.RoomCode)
	if err != nil {
		return
	}

	session.StoreIdentity(c.connID, payload.PlayerName)
}

// sendError sends an error message to the client
func (c *Client) sendError(msgType MessageType, code, message string) {
	c.Send(NewServerMessage(msgType, &ErrorPayload{
		Code:    code,
		Message: message,
	}))
}

// joinErrorCode maps domain errors from Join to wire codes
func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		return ErrCodeRoomFull
	case errors.Is(err, domain.ErrGameInProgress):
		return ErrCodeGameInProgress
	case errors.Is(err, domain.ErrNameTaken):
		return ErrCodeNameTaken
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrNameHasDigits):
		return ErrCodeInvalidName
	default:
		return ErrCodeInternalError
	}
}

// domainMsg converts a room event type to a wire message type
func domainMsg(t domain.EventType) MessageType {
	return MessageType(t)
}
