package domain

// QuestionKind discriminates how a question is presented and scored.
type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	TrueFalse      QuestionKind = "true_false"
	FreeText       QuestionKind = "free_text"
)

// Question is one entry of a question bank. Prompts may carry inline <b>
// markup; it is passed through to clients untouched. Answer never leaves the
// server as part of questionStart.
type Question struct {
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"` // multiple_choice and true_false only
	Answer  string       `json:"answer"`
}

// View strips the correct answer for broadcasting.
func (q Question) View() QuestionView {
	return QuestionView{Kind: q.Kind, Prompt: q.Prompt, Options: q.Options}
}

// QuestionBank is the immutable ordered question sequence a room plays through.
type QuestionBank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Player is one connection's membership in a room. Answered is reset at the
// start of every question.
type Player struct {
	ConnectionID string
	Name         string
	Score        int
	Answered     bool
}

// RoomStatus is the room lifecycle state. Transitions are monotonic:
// waiting -> active -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusActive   RoomStatus = "active"
	StatusFinished RoomStatus = "finished"
)
