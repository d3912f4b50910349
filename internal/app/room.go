package app

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizroom-service/internal/domain"
)

// EventSink delivers outbound events to connections. Implemented by the
// WebSocket hub in production and by capture doubles in tests.
type EventSink interface {
	Unicast(connectionID string, evt domain.Event)
	Multicast(connectionIDs []string, evt domain.Event)
}

// roomLifecycle is how a room tells its owner it is gone (finished or
// emptied) so the registry entry and connection index can be dropped.
type roomLifecycle interface {
	roomClosed(code string, memberIDs []string)
}

// Room is the authoritative state machine for one game session. All mutation
// happens under mu; timer callbacks re-enter through advanceIfCurrent, which
// re-checks the question epoch under the lock, so the "all answered" grace
// trigger and the server deadline can never both advance the same question.
type Room struct {
	code   string
	hostID string

	mu          sync.Mutex
	status      domain.RoomStatus
	players     []*domain.Player // insertion order = join order
	answered    int              // count of players with Answered == true
	questionIdx int
	bank        domain.QuestionBank
	epoch       uint64          // bumped on every advance; stale triggers bail out
	timer       clockwork.Timer // at most one live timer: deadline or grace delay

	clock     clockwork.Clock
	settings  Settings
	sink      EventSink
	lifecycle roomLifecycle
	log       zerolog.Logger
}

func newRoom(code, hostID, hostName string, bank domain.QuestionBank, clock clockwork.Clock, settings Settings, sink EventSink, lifecycle roomLifecycle, log zerolog.Logger) *Room {
	return &Room{
		code:   code,
		hostID: hostID,
		status: domain.StatusWaiting,
		players: []*domain.Player{
			{ConnectionID: hostID, Name: hostName},
		},
		bank:      bank,
		clock:     clock,
		settings:  settings,
		sink:      sink,
		lifecycle: lifecycle,
		log:       log.With().Str("room", code).Logger(),
	}
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// Roster returns the current player list in join order.
func (r *Room) Roster() []domain.PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

// Join appends a player while the room is still waiting. The roster broadcast
// includes the newcomer.
func (r *Room) Join(connectionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusWaiting {
		return domain.ErrGameAlreadyRunning
	}
	if len(r.players) >= r.settings.MaxPlayers {
		return domain.ErrRoomFull
	}

	r.players = append(r.players, &domain.Player{ConnectionID: connectionID, Name: name})
	r.sink.Multicast(r.memberIDsLocked(), domain.Event{
		Type:    domain.EventPlayerUpdate,
		Payload: domain.PlayerUpdatePayload{Players: r.rosterLocked()},
	})
	return nil
}

// Start begins the question cycle. Only the creator may start, and only once
// enough players have joined.
func (r *Room) Start(connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusWaiting {
		return domain.ErrGameAlreadyRunning
	}
	if connectionID != r.hostID {
		return domain.ErrNotHost
	}
	if len(r.players) < r.settings.MinPlayers {
		return domain.ErrNotEnoughPlayers
	}

	r.status = domain.StatusActive
	r.questionIdx = 0
	r.log.Info().Int("players", len(r.players)).Msg("game started")
	r.beginQuestionLocked()
	return nil
}

// SubmitAnswer records one player's answer for the current question. A nil
// answer is the client-side timeout sentinel. Duplicate submissions, unknown
// players, and rooms outside the active state are all silent no-ops; the
// duplicate guard is what makes a client retry inert.
func (r *Room) SubmitAnswer(connectionID string, answer *string, timeRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusActive {
		return
	}
	player := r.playerLocked(connectionID)
	if player == nil || player.Answered {
		return
	}

	player.Answered = true
	r.answered++

	question := r.bank.Questions[r.questionIdx]
	correct, points := Score(question, answer, timeRemaining, r.settings.timerSeconds())
	result := domain.AnswerResultPayload{IsCorrect: correct}
	if correct {
		player.Score += points
		result.Message = "Correct!"
	} else {
		result.Message = fmt.Sprintf("Wrong. The answer was: <b>%s</b>", question.Answer)
	}
	r.sink.Unicast(connectionID, domain.Event{Type: domain.EventAnswerResult, Payload: result})
	r.sink.Multicast(r.memberIDsLocked(), domain.Event{
		Type:    domain.EventScoreUpdate,
		Payload: domain.ScoreUpdatePayload{Players: r.rosterLocked()},
	})

	if r.answered >= len(r.players) {
		// Everyone is in: the server deadline is moot, but the results
		// should stay on screen for a beat before the next question.
		r.stopTimerLocked()
		r.scheduleAdvanceLocked(r.settings.GraceDelay)
	}
}

// Leave removes a player in any room state. If the departed player was the
// only one still owed an answer, the question advances immediately so the
// rest of the room is not stuck waiting on a ghost. A room left with no
// players is closed outright.
func (r *Room) Leave(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ConnectionID == connectionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	if r.players[idx].Answered {
		r.answered--
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		r.log.Info().Msg("room emptied, closing")
		r.closeLocked(nil)
		return
	}

	r.sink.Multicast(r.memberIDsLocked(), domain.Event{
		Type:    domain.EventPlayerUpdate,
		Payload: domain.PlayerUpdatePayload{Players: r.rosterLocked()},
	})

	if r.status == domain.StatusActive && r.answered >= len(r.players) {
		r.advanceLocked()
	}
}

// beginQuestionLocked resets per-question answer tracking, broadcasts the
// question (answer stripped), and arms the server deadline. The deadline runs
// a little longer than the client countdown to absorb clock and network skew;
// clients self-report a timeout by submitting a nil answer, but the server
// forces progress even if they never do.
func (r *Room) beginQuestionLocked() {
	for _, p := range r.players {
		p.Answered = false
	}
	r.answered = 0

	question := r.bank.Questions[r.questionIdx]
	r.sink.Multicast(r.memberIDsLocked(), domain.Event{
		Type: domain.EventQuestionStart,
		Payload: domain.QuestionStartPayload{
			Question: question.View(),
			Index:    r.questionIdx + 1,
		},
	})

	r.stopTimerLocked()
	r.scheduleAdvanceLocked(r.settings.QuestionTimer + r.settings.TimerBuffer)
}

// scheduleAdvanceLocked arms the single room timer. The callback captures the
// current epoch; if the question has moved on by the time it fires, it is a
// stale trigger and does nothing.
func (r *Room) scheduleAdvanceLocked(d time.Duration) {
	epoch := r.epoch
	r.timer = r.clock.AfterFunc(d, func() {
		r.advanceIfCurrent(epoch)
	})
}

func (r *Room) advanceIfCurrent(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.StatusActive || r.epoch != epoch {
		return
	}
	r.log.Debug().Int("question", r.questionIdx+1).Msg("deadline reached, advancing")
	r.advanceLocked()
}

// advanceLocked moves to the next question or finishes the game. Bumping the
// epoch first invalidates whichever competing trigger did not get here.
func (r *Room) advanceLocked() {
	r.epoch++
	r.stopTimerLocked()
	r.questionIdx++
	if r.questionIdx < len(r.bank.Questions) {
		r.beginQuestionLocked()
		return
	}

	r.status = domain.StatusFinished
	roster := r.rosterLocked()
	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].Score > roster[j].Score
	})
	r.log.Info().Msg("game over")
	r.closeLocked(&domain.GameOverPayload{Players: roster})
}

// closeLocked tears the room down. farewell, if non-nil, is the gameOver
// payload to broadcast before the registry entry disappears.
func (r *Room) closeLocked(farewell *domain.GameOverPayload) {
	r.epoch++
	r.stopTimerLocked()
	members := r.memberIDsLocked()
	if farewell != nil {
		r.sink.Multicast(members, domain.Event{Type: domain.EventGameOver, Payload: *farewell})
	}
	r.lifecycle.roomClosed(r.code, members)
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Room) playerLocked(connectionID string) *domain.Player {
	for _, p := range r.players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

func (r *Room) rosterLocked() []domain.PlayerView {
	roster := make([]domain.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		roster = append(roster, domain.PlayerView{ID: p.ConnectionID, Name: p.Name, Score: p.Score})
	}
	return roster
}

func (r *Room) memberIDsLocked() []string {
	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ConnectionID)
	}
	return ids
}
