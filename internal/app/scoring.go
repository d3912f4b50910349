package app

import (
	"strings"

	"quizroom-service/internal/domain"
)

// Score grades a submitted answer against a question. A nil answer is the
// "no answer" sentinel (client-side timeout or forced advance) and always
// grades as incorrect without touching the value. timeRemainingSeconds comes
// from the client and is clamped to [0, timerSeconds] before it feeds the
// bonus, so a bad clock or a tampering client cannot mint points.
//
// multiple_choice and true_false compare the submitted text against the
// authored answer exactly; free_text trims and case-folds both sides.
// Correct answers earn 100 + 5 per remaining second.
func Score(q domain.Question, answer *string, timeRemainingSeconds, timerSeconds int) (bool, int) {
	if answer == nil {
		return false, 0
	}

	var correct bool
	switch q.Kind {
	case domain.FreeText:
		correct = strings.EqualFold(strings.TrimSpace(*answer), strings.TrimSpace(q.Answer))
	default:
		correct = *answer == q.Answer
	}
	if !correct {
		return false, 0
	}

	remaining := timeRemainingSeconds
	if remaining < 0 {
		remaining = 0
	}
	if remaining > timerSeconds {
		remaining = timerSeconds
	}
	return true, 100 + 5*remaining
}
