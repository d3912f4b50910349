package app

import "time"

// Settings are the per-room game constants. The defaults match the classic
// rules: rooms of 2-24 players, a 30 second client countdown with a 2 second
// server-side buffer, and a 2 second pause after everyone answered so results
// stay readable.
type Settings struct {
	MinPlayers    int
	MaxPlayers    int
	QuestionTimer time.Duration // client-visible countdown per question
	TimerBuffer   time.Duration // server tolerance on top of QuestionTimer
	GraceDelay    time.Duration // pause between "all answered" and the next question
}

func DefaultSettings() Settings {
	return Settings{
		MinPlayers:    2,
		MaxPlayers:    24,
		QuestionTimer: 30 * time.Second,
		TimerBuffer:   2 * time.Second,
		GraceDelay:    2 * time.Second,
	}
}

// timerSeconds is the upper bound for client-claimed time remaining.
func (s Settings) timerSeconds() int {
	return int(s.QuestionTimer / time.Second)
}
