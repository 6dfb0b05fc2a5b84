package models

import "time"

// Lesson is generated reading material for a lesson stage.
type Lesson struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Examples []string `json:"examples"`
}

// Content sources.
const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
	SourceRemote    = "remote"
	SourceLocal     = "local"
)

// Quiz is the question set served for one quiz stage.
type Quiz struct {
	StageType StageType  `json:"stageType"`
	Questions []Question `json:"questions"`
	Source    string     `json:"source"`
}

// Grade is the outcome of evaluating one answer.
type Grade struct {
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
	Feedback   string `json:"feedback"`
	Source     string `json:"source"`
}

// StoredState is the opaque remote record: the serialized game state plus a timestamp.
type StoredState struct {
	PlayerID  string    `json:"playerId"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
}
