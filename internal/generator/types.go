package generator

import (
	"encoding/json"

	"github.com/vytor/logicbuild/internal/models"
)

type LessonRequest struct {
	BossName        string            `json:"bossName"`
	LevelID         int               `json:"levelId"`
	DifficultyLevel models.Difficulty `json:"difficultyLevel"`
}

type LessonResponse struct {
	Title    string   `json:"title" validate:"required"`
	Content  string   `json:"content" validate:"required"`
	Examples []string `json:"examples" validate:"omitempty,dive,required"`
}

type QuizRequest struct {
	BossName        string            `json:"bossName"`
	LevelID         int               `json:"levelId"`
	StageType       models.StageType  `json:"stageType"`
	DifficultyLevel models.Difficulty `json:"difficultyLevel"`
	QuestionCount   int               `json:"questionCount"`
}

// WireQuestion is a question exactly as the endpoint sends it. The correct
// answer may be a string or an option index, so it stays raw until validated.
type WireQuestion struct {
	ID              string          `json:"id"`
	Text            string          `json:"text" validate:"required"`
	Type            string          `json:"type" validate:"required,oneof=multiple-choice fill-in-blank logic-puzzle"`
	Options         []string        `json:"options" validate:"omitempty,dive,required"`
	CorrectAnswer   json.RawMessage `json:"correctAnswer"`
	Explanation     string          `json:"explanation"`
	DifficultyLevel string          `json:"difficultyLevel"`
}

type QuizResponse struct {
	Questions []WireQuestion `json:"questions" validate:"required,min=1,dive"`
}

type GradeRequest struct {
	Question      models.Question `json:"question"`
	StudentAnswer string          `json:"studentAnswer"`
}

type GradeResponse struct {
	IsCorrect *bool  `json:"isCorrect" validate:"required"`
	Feedback  string `json:"feedback"`
}
