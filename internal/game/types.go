package game

import (
	"time"
)

// Status is the lifecycle of a session. Transitions only ever move forward:
// lobby -> playing -> ended. Sessions are never reused.
type Status string

const (
	StatusLobby   Status = "lobby"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// phase tracks where a playing session is inside the question cycle.
type phase int

const (
	phaseIdle phase = iota
	phaseAsking
	phaseRevealing
)

type Player struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	IsReady bool     `json:"isReady"`
	IsHost  bool     `json:"isHost"`
	Answers []Answer `json:"answers"`
}

type Answer struct {
	QuestionIndex int       `json:"questionIndex"`
	ChosenOption  int       `json:"chosenOption"`
	IsCorrect     bool      `json:"isCorrect"`
	Timestamp     time.Time `json:"timestamp"`
}

// QuestionView is the outbound shape of a question while it is being asked.
// The correct option index is deliberately absent.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// RevealedQuestion is broadcast once answering has closed.
type RevealedQuestion struct {
	QuestionView
	CorrectOption int `json:"correctOption"`
}

type ResultEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Score          int    `json:"score"`
	CorrectAnswers int    `json:"correctAnswers"`
	Rank           int    `json:"rank"`
}

// Snapshot is the full session state broadcast after joins, readies, and
// roster changes.
type Snapshot struct {
	SessionID          string        `json:"sessionId"`
	Status             Status        `json:"status"`
	Players            []Player      `json:"players"`
	CurrentQuestion    *QuestionView `json:"currentQuestion"`
	QuestionNumber     int           `json:"questionNumber"`
	TotalQuestions     int           `json:"totalQuestions"`
	TimeLimit          int           `json:"timeLimit"`
	TimeRemaining      int           `json:"timeRemaining"`
	LobbyTimeRemaining int           `json:"lobbyTimeRemaining"`
	Results            []ResultEntry `json:"results,omitempty"`
}

type QuestionPayload struct {
	Question       QuestionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
	TimeLimit      int          `json:"timeLimit"`
	TimeRemaining  int          `json:"timeRemaining"`
}

type TimerUpdate struct {
	TimeRemaining int `json:"timeRemaining"`
}

type QuestionEnded struct {
	Question RevealedQuestion `json:"question"`
}

type GameEnded struct {
	Results []ResultEntry `json:"results"`
}

// AnswerResult is sent to the submitting connection only, so a player gets
// immediate feedback regardless of when the question officially ends.
type AnswerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
	Score         int  `json:"score"`
}

type SessionStats struct {
	ID             string `json:"id"`
	Status         Status `json:"status"`
	PlayerCount    int    `json:"playerCount"`
	QuestionNumber int    `json:"questionNumber"`
}

// Outbound event names, shared with the gateway.
const (
	EventState         = "game-state"
	EventQuestion      = "question"
	EventTimerUpdate   = "timer-update"
	EventQuestionEnded = "question-ended"
	EventGameEnded     = "game-ended"
	EventAnswerResult  = "answer-result"
	EventServerBusy    = "server-busy"
)
