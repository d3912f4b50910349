package domain

// Event is the JSON envelope both directions of the wire protocol share.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Outbound event types.
const (
	EventRoomCreated   = "roomCreated"
	EventPlayerUpdate  = "playerUpdate"
	EventQuestionStart = "questionStart"
	EventAnswerResult  = "answerResult"
	EventScoreUpdate   = "scoreUpdate"
	EventGameOver      = "gameOver"
	EventRoomError     = "roomError"
)

// PlayerView is the roster entry clients see.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionView is a Question with the correct answer stripped.
type QuestionView struct {
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
}

type RoomCreatedPayload struct {
	Code    string       `json:"code"`
	Players []PlayerView `json:"players"`
}

type PlayerUpdatePayload struct {
	Players []PlayerView `json:"players"`
}

type QuestionStartPayload struct {
	Question QuestionView `json:"question"`
	Index    int          `json:"index"` // 1-based
}

type AnswerResultPayload struct {
	IsCorrect bool   `json:"isCorrect"`
	Message   string `json:"message"`
}

type ScoreUpdatePayload struct {
	Players []PlayerView `json:"players"`
}

type GameOverPayload struct {
	Players []PlayerView `json:"players"`
}

type RoomErrorPayload struct {
	Reason string `json:"reason"`
}
