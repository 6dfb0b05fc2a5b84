package models

import (
	"strconv"
	"strings"
)

// QuestionType discriminates the Question union.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionFillInBlank    QuestionType = "fill-in-blank"
	QuestionLogicPuzzle    QuestionType = "logic-puzzle"
)

// Valid reports whether t is a recognized question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionFillInBlank, QuestionLogicPuzzle:
		return true
	}
	return false
}

// Question is ephemeral quiz content; it is never persisted with the game state.
// Options is only populated for multiple-choice questions, and CorrectAnswer is
// always normalized to the answer text (an option's text for multiple-choice).
type Question struct {
	ID              string       `json:"id" yaml:"id"`
	Text            string       `json:"text" yaml:"text"`
	Type            QuestionType `json:"type" yaml:"type"`
	Options         []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectAnswer   string       `json:"correctAnswer" yaml:"correctAnswer"`
	Explanation     string       `json:"explanation" yaml:"explanation"`
	DifficultyLevel Difficulty   `json:"difficultyLevel,omitempty" yaml:"difficultyLevel,omitempty"`
}

// IsCorrect applies the local equality check. A multiple-choice answer that is
// not the text of any option may be the zero-based option index instead; an
// answer matching an option's text is always graded as that text.
func (q Question) IsCorrect(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == q.CorrectAnswer {
		return true
	}
	if q.Type != QuestionMultipleChoice {
		return false
	}
	for _, opt := range q.Options {
		if opt == answer {
			return false
		}
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 0 || idx >= len(q.Options) {
		return false
	}
	return q.Options[idx] == q.CorrectAnswer
}

// PublicQuestion is what players see: the answer and explanation are withheld.
type PublicQuestion struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// Public strips grading data from q.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Type: q.Type, Options: q.Options}
}
