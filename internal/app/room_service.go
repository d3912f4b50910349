package app

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizroom-service/internal/domain"
)

// RoomRegistry abstracts how live rooms are stored (in-memory, Redis-marked).
// Put reports false when the code is already taken; callers regenerate.
type RoomRegistry interface {
	Put(code string, room *Room) bool
	Get(code string) (*Room, bool)
	Delete(code string)
}

// BankRepository loads question bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 4

// RoomServiceConfig assembles a RoomService. Clock, Settings, and Logger have
// working defaults; the rest is required.
type RoomServiceConfig struct {
	Registry RoomRegistry
	Banks    BankRepository
	BankID   string
	Sink     EventSink
	Clock    clockwork.Clock
	Settings Settings
	Logger   zerolog.Logger
}

// RoomService dispatches client commands and connection-lifecycle events to
// rooms and owns the reverse index from connection to room, which is all the
// state the disconnect path needs.
type RoomService struct {
	rooms    RoomRegistry
	banks    BankRepository
	bankID   string
	sink     EventSink
	clock    clockwork.Clock
	settings Settings
	log      zerolog.Logger

	mu     sync.Mutex
	byConn map[string]string // connectionID -> room code
	rnd    *rand.Rand
}

func NewRoomService(cfg RoomServiceConfig) *RoomService {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Settings == (Settings{}) {
		cfg.Settings = DefaultSettings()
	}
	return &RoomService{
		rooms:    cfg.Registry,
		banks:    cfg.Banks,
		bankID:   cfg.BankID,
		sink:     cfg.Sink,
		clock:    cfg.Clock,
		settings: cfg.Settings,
		log:      cfg.Logger,
		byConn:   make(map[string]string),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// HostRoom creates a room with the caller as host and sole player, and
// replies with the join code.
func (s *RoomService) HostRoom(ctx context.Context, connectionID, name string) {
	bank, err := s.banks.GetBank(ctx, s.bankID)
	if err == nil && len(bank.Questions) == 0 {
		err = domain.ErrBankEmpty
	}
	if err != nil {
		s.log.Error().Err(err).Str("bank", s.bankID).Msg("question bank unavailable")
		s.sendError(connectionID, "quiz unavailable, try again later")
		return
	}

	// The code space is large enough that collisions are rare, but they are
	// still possible with many live rooms, so Put is the arbiter.
	var (
		code string
		room *Room
	)
	for {
		code = s.randomCode()
		room = newRoom(code, connectionID, name, bank, s.clock, s.settings, s.sink, s, s.log)
		if s.rooms.Put(code, room) {
			break
		}
	}

	s.mu.Lock()
	s.byConn[connectionID] = code
	s.mu.Unlock()

	s.log.Info().Str("room", code).Msg("room created")
	s.sink.Unicast(connectionID, domain.Event{
		Type: domain.EventRoomCreated,
		Payload: domain.RoomCreatedPayload{
			Code:    code,
			Players: room.Roster(),
		},
	})
}

// JoinRoom adds the caller to an existing waiting room.
func (s *RoomService) JoinRoom(connectionID, code, name string) {
	room, err := s.lookupRoom(code)
	if err == nil {
		err = room.Join(connectionID, name)
	}
	if err != nil {
		s.sendError(connectionID, errorReason(err))
		return
	}
	s.mu.Lock()
	s.byConn[connectionID] = room.Code()
	s.mu.Unlock()
}

// StartGame starts the question cycle. The host-only and minimum-player
// checks surface as roomError rather than a silent drop; a rejected click
// deserves a reason.
func (s *RoomService) StartGame(connectionID, code string) {
	room, err := s.lookupRoom(code)
	if err == nil {
		err = room.Start(connectionID)
	}
	if err != nil {
		s.sendError(connectionID, errorReason(err))
	}
}

// SubmitAnswer forwards an answer to the addressed room. Out-of-order or
// malformed submissions are inert by room policy.
func (s *RoomService) SubmitAnswer(connectionID, code string, answer *string, timeRemaining int) {
	room, err := s.lookupRoom(code)
	if err != nil {
		return
	}
	room.SubmitAnswer(connectionID, answer, timeRemaining)
}

func (s *RoomService) lookupRoom(code string) (*Room, error) {
	room, ok := s.rooms.Get(strings.ToUpper(strings.TrimSpace(code)))
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Disconnect handles a closed connection: the player leaves whatever room
// they were in, which may force the question forward or close the room.
func (s *RoomService) Disconnect(connectionID string) {
	s.mu.Lock()
	code, ok := s.byConn[connectionID]
	delete(s.byConn, connectionID)
	s.mu.Unlock()
	if !ok {
		return
	}
	room, ok := s.rooms.Get(code)
	if !ok {
		return
	}
	room.Leave(connectionID)
}

// roomClosed implements roomLifecycle: the room is done (finished or
// emptied), so it stops being findable and its members stop resolving to it.
func (s *RoomService) roomClosed(code string, memberIDs []string) {
	s.rooms.Delete(code)
	s.mu.Lock()
	for _, id := range memberIDs {
		if s.byConn[id] == code {
			delete(s.byConn, id)
		}
	}
	s.mu.Unlock()
	s.log.Info().Str("room", code).Msg("room removed")
}

func (s *RoomService) sendError(connectionID, reason string) {
	s.sink.Unicast(connectionID, domain.Event{
		Type:    domain.EventRoomError,
		Payload: domain.RoomErrorPayload{Reason: reason},
	})
}

func (s *RoomService) randomCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// errorReason translates domain errors to the user-facing roomError reasons
// the wire protocol fixes.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrGameAlreadyRunning):
		return "game already running"
	case errors.Is(err, domain.ErrRoomFull):
		return "room full"
	case errors.Is(err, domain.ErrNotHost):
		return "only the host can start the game"
	case errors.Is(err, domain.ErrNotEnoughPlayers):
		return "not enough players"
	default:
		return "invalid code"
	}
}
