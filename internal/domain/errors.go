package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameInProgress   = errors.New("game has already started")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrNameTooLong      = errors.New("name is too long")
	ErrNameHasDigits    = errors.New("name cannot contain numbers")
	ErrNameTaken        = errors.New("name already taken")
	ErrPlayerNotFound   = errors.New("player not found in room")
	ErrNotHost          = errors.New("only the host can perform this action")
	ErrWrongPhase       = errors.New("invalid action for current phase")
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrQuestionTooLong  = errors.New("question is too long")
	ErrAlreadySubmitted = errors.New("already submitted a question this round")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAlreadyVoted     = errors.New("already voted this round")
	ErrOwnQuestion      = errors.New("cannot vote for your own question")
	ErrNotTarget        = errors.New("only the target player can guess")
	ErrAlreadyGuessed   = errors.New("guess already made this round")
	ErrInvalidRounds    = errors.New("invalid number of rounds")
)
