package app

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"quizroom-service/internal/domain"
)

type recordedEvent struct {
	targets []string
	evt     domain.Event
}

type recordingSink struct {
	ch chan recordedEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan recordedEvent, 256)}
}

func (s *recordingSink) Unicast(id string, evt domain.Event) {
	s.ch <- recordedEvent{targets: []string{id}, evt: evt}
}

func (s *recordingSink) Multicast(ids []string, evt domain.Event) {
	s.ch <- recordedEvent{targets: ids, evt: evt}
}

func (s *recordingSink) next(t *testing.T, evtType string) recordedEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-s.ch:
			if e.evt.Type == evtType {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", evtType)
		}
	}
}

// drainIdle asserts no event arrives within a short window.
func (s *recordingSink) drainIdle(t *testing.T, window time.Duration) {
	t.Helper()
	select {
	case e := <-s.ch:
		t.Fatalf("expected no event, got %s", e.evt.Type)
	case <-time.After(window):
	}
}

type stubLifecycle struct {
	ch chan string
}

func newStubLifecycle() *stubLifecycle {
	return &stubLifecycle{ch: make(chan string, 4)}
}

func (l *stubLifecycle) roomClosed(code string, _ []string) {
	l.ch <- code
}

func testBank(n int) domain.QuestionBank {
	bank := domain.QuestionBank{ID: "bank-test"}
	for i := 0; i < n; i++ {
		bank.Questions = append(bank.Questions, domain.Question{
			Kind:    domain.MultipleChoice,
			Prompt:  "Pick A",
			Options: []string{"A", "B"},
			Answer:  "A",
		})
	}
	return bank
}

func newTestRoom(t *testing.T, questions int) (*Room, *recordingSink, *stubLifecycle, *clockwork.FakeClock) {
	t.Helper()
	sink := newRecordingSink()
	lifecycle := newStubLifecycle()
	clock := clockwork.NewFakeClock()
	room := newRoom("AB12", "host", "Alice", testBank(questions), clock, DefaultSettings(), sink, lifecycle, zerolog.Nop())
	return room, sink, lifecycle, clock
}

func (r *Room) checkAnsweredCount(t *testing.T) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, p := range r.players {
		if p.Answered {
			count++
		}
	}
	if count != r.answered {
		t.Fatalf("answered count %d does not match flags %d", r.answered, count)
	}
}

func (r *Room) hasLiveTimer() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

func TestAnsweredCountMatchesFlags(t *testing.T) {
	room, _, _, _ := newTestRoom(t, 3)
	if err := room.Join("p2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Join("p3", "Cara"); err != nil {
		t.Fatalf("join: %v", err)
	}
	room.checkAnsweredCount(t)

	if err := room.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	room.checkAnsweredCount(t)

	room.SubmitAnswer("p2", strptr("A"), 10)
	room.checkAnsweredCount(t)
	room.SubmitAnswer("host", nil, 0)
	room.checkAnsweredCount(t)

	// p3 leaves without answering; counts must stay consistent after repair.
	room.Leave("p3")
	room.checkAnsweredCount(t)
}

func TestExactlyOneLiveTimerPerRoom(t *testing.T) {
	room, sink, _, _ := newTestRoom(t, 2)
	if room.hasLiveTimer() {
		t.Fatalf("waiting room must not hold a timer")
	}
	if err := room.Join("p2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	sink.next(t, domain.EventQuestionStart)
	if !room.hasLiveTimer() {
		t.Fatalf("active question must hold the deadline timer")
	}

	// All answered: the deadline is swapped for the grace-delay timer, never
	// held alongside it.
	room.SubmitAnswer("host", strptr("A"), 10)
	room.SubmitAnswer("p2", strptr("B"), 10)
	if !room.hasLiveTimer() {
		t.Fatalf("grace delay must hold a timer")
	}
}

func TestStaleTriggerCannotDoubleAdvance(t *testing.T) {
	room, sink, _, clock := newTestRoom(t, 3)
	if err := room.Join("p2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := sink.next(t, domain.EventQuestionStart)
	if got := first.evt.Payload.(domain.QuestionStartPayload).Index; got != 1 {
		t.Fatalf("expected question 1, got %d", got)
	}

	room.mu.Lock()
	staleEpoch := room.epoch
	room.mu.Unlock()

	room.SubmitAnswer("host", strptr("A"), 10)
	room.SubmitAnswer("p2", strptr("A"), 10)

	// Grace delay fires and advances to question 2.
	clock.Advance(DefaultSettings().GraceDelay)
	second := sink.next(t, domain.EventQuestionStart)
	if got := second.evt.Payload.(domain.QuestionStartPayload).Index; got != 2 {
		t.Fatalf("expected question 2, got %d", got)
	}

	// The question-1 deadline, had its Stop lost the race, is now stale and
	// must be a no-op.
	room.advanceIfCurrent(staleEpoch)
	sink.drainIdle(t, 50*time.Millisecond)
}

func TestTimeoutAdvancesWithScoresUnchanged(t *testing.T) {
	room, sink, _, clock := newTestRoom(t, 2)
	if err := room.Join("p2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := room.Start("host"); err != nil {
		t.Fatalf("start: %v", err)
	}
	sink.next(t, domain.EventQuestionStart)

	settings := DefaultSettings()
	clock.Advance(settings.QuestionTimer + settings.TimerBuffer)

	second := sink.next(t, domain.EventQuestionStart)
	payload := second.evt.Payload.(domain.QuestionStartPayload)
	if payload.Index != 2 {
		t.Fatalf("expected question 2 after timeout, got %d", payload.Index)
	}
	for _, p := range room.Roster() {
		if p.Score != 0 {
			t.Fatalf("scores must be unchanged after a timeout, got %+v", p)
		}
	}
}

func TestLeaveClosesEmptyRoom(t *testing.T) {
	room, _, lifecycle, _ := newTestRoom(t, 2)
	room.Leave("host")
	select {
	case code := <-lifecycle.ch:
		if code != "AB12" {
			t.Fatalf("unexpected code %s", code)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected room to close when emptied")
	}
	if room.hasLiveTimer() {
		t.Fatalf("closed room must not hold a timer")
	}
}
