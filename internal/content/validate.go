package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vytor/logicbuild/internal/generator"
	"github.com/vytor/logicbuild/internal/models"
)

var (
	ErrInvalidQuiz   = errors.New("invalid quiz content")
	ErrInvalidLesson = errors.New("invalid lesson content")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateLesson checks a generated lesson and trims its fields.
func ValidateLesson(resp *generator.LessonResponse) (models.Lesson, error) {
	if resp == nil {
		return models.Lesson{}, fmt.Errorf("%w: empty response", ErrInvalidLesson)
	}
	if err := validate.Struct(resp); err != nil {
		return models.Lesson{}, fmt.Errorf("%w: %v", ErrInvalidLesson, err)
	}
	lesson := models.Lesson{
		Title:    strings.TrimSpace(resp.Title),
		Content:  strings.TrimSpace(resp.Content),
		Examples: make([]string, 0, len(resp.Examples)),
	}
	if lesson.Title == "" || lesson.Content == "" {
		return models.Lesson{}, fmt.Errorf("%w: blank title or content", ErrInvalidLesson)
	}
	for _, ex := range resp.Examples {
		if ex = strings.TrimSpace(ex); ex != "" {
			lesson.Examples = append(lesson.Examples, ex)
		}
	}
	return lesson, nil
}

// ValidateQuiz converts a generated quiz into questions. Any malformed question
// rejects the whole response. Missing or duplicate ids are replaced and the
// list is cut to the stage's question count.
func ValidateQuiz(resp *generator.QuizResponse, levelID int, stageType models.StageType, difficulty models.Difficulty, rng *Rand) ([]models.Question, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidQuiz)
	}
	if err := validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}

	limit := stageType.QuestionCount()
	if limit == 0 || limit > len(resp.Questions) {
		limit = len(resp.Questions)
	}

	seen := make(map[string]bool, limit)
	out := make([]models.Question, 0, limit)
	for i, wq := range resp.Questions[:limit] {
		q, err := parseQuestion(wq)
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrInvalidQuiz, i+1, err)
		}
		if q.ID == "" || seen[q.ID] {
			q.ID = fmt.Sprintf("gen-l%d-q%d-%s", levelID, i+1, rng.suffix(6))
		}
		seen[q.ID] = true
		if !q.DifficultyLevel.Valid() {
			q.DifficultyLevel = difficulty
		}
		out = append(out, q)
	}
	return out, nil
}

func parseQuestion(wq generator.WireQuestion) (models.Question, error) {
	q := models.Question{
		ID:              strings.TrimSpace(wq.ID),
		Text:            strings.TrimSpace(wq.Text),
		Type:            models.QuestionType(strings.TrimSpace(wq.Type)),
		Explanation:     strings.TrimSpace(wq.Explanation),
		DifficultyLevel: models.Difficulty(strings.ToLower(strings.TrimSpace(wq.DifficultyLevel))),
	}
	if q.Text == "" {
		return q, fmt.Errorf("blank text")
	}
	if !q.Type.Valid() {
		return q, fmt.Errorf("unknown type %q", wq.Type)
	}

	if q.Type == models.QuestionMultipleChoice {
		if len(wq.Options) == 0 {
			return q, fmt.Errorf("multiple-choice without options")
		}
		q.Options = make([]string, len(wq.Options))
		for i, opt := range wq.Options {
			if q.Options[i] = strings.TrimSpace(opt); q.Options[i] == "" {
				return q, fmt.Errorf("blank option %d", i)
			}
		}
	}

	answer, err := parseAnswer(wq.CorrectAnswer, q.Options)
	if err != nil {
		return q, err
	}
	q.CorrectAnswer = answer
	return q, nil
}

// parseAnswer normalizes the string-or-index answer to answer text. options is
// nil for open questions.
func parseAnswer(raw json.RawMessage, options []string) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("missing correct answer")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("blank correct answer")
		}
		if options == nil {
			return s, nil
		}
		for _, opt := range options {
			if opt == s {
				return opt, nil
			}
		}
		if idx, err := strconv.Atoi(s); err == nil {
			return optionAt(options, idx)
		}
		return "", fmt.Errorf("correct answer %q is not an option", s)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if options == nil {
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		}
		if n != math.Trunc(n) {
			return "", fmt.Errorf("option index %v is not an integer", n)
		}
		return optionAt(options, int(n))
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil && options == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("unsupported correct answer %s", string(raw))
}

func optionAt(options []string, idx int) (string, error) {
	if idx < 0 || idx >= len(options) {
		return "", fmt.Errorf("option index %d out of range", idx)
	}
	return options[idx], nil
}
