package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not match a live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join would exceed the player limit.
	ErrRoomFull = errors.New("room full")
	// ErrGameAlreadyRunning is returned when a join or start hits a room that
	// has left the waiting state.
	ErrGameAlreadyRunning = errors.New("game already running")
	// ErrNotHost is returned when someone other than the creator tries to
	// start the game.
	ErrNotHost = errors.New("requester is not the host")
	// ErrNotEnoughPlayers is returned when a start is attempted below the
	// minimum player count.
	ErrNotEnoughPlayers = errors.New("not enough players")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankEmpty indicates a bank with no questions; rooms cannot play it.
	ErrBankEmpty = errors.New("question bank has no questions")
)
