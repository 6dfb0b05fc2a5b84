package content_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/logicbuild/internal/content"
	"github.com/vytor/logicbuild/internal/generator"
	"github.com/vytor/logicbuild/internal/models"
)

func mc(id, text string, answer string, options ...string) generator.WireQuestion {
	return generator.WireQuestion{
		ID:            id,
		Text:          text,
		Type:          string(models.QuestionMultipleChoice),
		Options:       options,
		CorrectAnswer: json.RawMessage(answer),
	}
}

func openQ(id, qt, text, answer string) generator.WireQuestion {
	return generator.WireQuestion{ID: id, Text: text, Type: qt, CorrectAnswer: json.RawMessage(answer)}
}

func TestValidateQuiz_NormalizesAnswers(t *testing.T) {
	resp := &generator.QuizResponse{Questions: []generator.WireQuestion{
		mc("a", "Pick B", `"B"`, "A", "B"),
		mc("b", "Pick index", `1`, "x", "y", "z"),
		mc("c", "Pick index string", `"0"`, "first", "second"),
		openQ("d", "fill-in-blank", " 2 + 2 = ____ ", `4`),
		openQ("e", "logic-puzzle", "True?", `true`),
	}}

	qs, err := content.ValidateQuiz(resp, 1, models.StageFinalQuiz, models.DifficultyBeginner, content.NewRand(1))
	require.NoError(t, err)
	require.Len(t, qs, 5)

	assert.Equal(t, "B", qs[0].CorrectAnswer)
	assert.Equal(t, "y", qs[1].CorrectAnswer)
	assert.Equal(t, "first", qs[2].CorrectAnswer)
	assert.Equal(t, "4", qs[3].CorrectAnswer)
	assert.Equal(t, "2 + 2 = ____", qs[3].Text)
	assert.Nil(t, qs[3].Options)
	assert.Equal(t, "true", qs[4].CorrectAnswer)
	for _, q := range qs {
		assert.Equal(t, models.DifficultyBeginner, q.DifficultyLevel)
	}
}

func TestValidateQuiz_TruncatesAndReassignsIDs(t *testing.T) {
	resp := &generator.QuizResponse{Questions: []generator.WireQuestion{
		mc("", "One", `"a"`, "a", "b"),
		mc("dup", "Two", `"a"`, "a", "b"),
		mc("dup", "Three", `"a"`, "a", "b"),
		mc("four", "Four", `"a"`, "a", "b"),
	}}

	qs, err := content.ValidateQuiz(resp, 3, models.StageMiniQuiz, models.DifficultyBeginner, content.NewRand(1))
	require.NoError(t, err)
	require.Len(t, qs, 3)

	assert.Contains(t, qs[0].ID, "gen-l3-q1-")
	assert.Equal(t, "dup", qs[1].ID)
	assert.Contains(t, qs[2].ID, "gen-l3-q3-")
}

func TestValidateQuiz_KeepsGeneratedDifficulty(t *testing.T) {
	q := mc("a", "Pick", `"a"`, "a", "b")
	q.DifficultyLevel = "Advanced"

	qs, err := content.ValidateQuiz(&generator.QuizResponse{Questions: []generator.WireQuestion{q}},
		1, models.StageMiniQuiz, models.DifficultyBeginner, content.NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.DifficultyAdvanced, qs[0].DifficultyLevel)
}

func TestValidateQuiz_Rejects(t *testing.T) {
	tests := []struct {
		name string
		resp *generator.QuizResponse
	}{
		{"nil response", nil},
		{"no questions", &generator.QuizResponse{}},
		{"blank text", &generator.QuizResponse{Questions: []generator.WireQuestion{mc("a", "   ", `"a"`, "a")}}},
		{"unknown type", &generator.QuizResponse{Questions: []generator.WireQuestion{openQ("a", "essay", "Q", `"a"`)}}},
		{"mc without options", &generator.QuizResponse{Questions: []generator.WireQuestion{mc("a", "Q", `"a"`)}}},
		{"mc blank option", &generator.QuizResponse{Questions: []generator.WireQuestion{mc("a", "Q", `"a"`, "a", " ")}}},
		{"mc answer not an option", &generator.QuizResponse{Questions: []generator.WireQuestion{mc("a", "Q", `"c"`, "a", "b")}}},
		{"mc index out of range", &generator.QuizResponse{Questions: []generator.WireQuestion{mc("a", "Q", `5`, "a", "b")}}},
		{"mc fractional index", &generator.QuizResponse{Questions: []generator.WireQuestion{mc("a", "Q", `0.5`, "a", "b")}}},
		{"missing answer", &generator.QuizResponse{Questions: []generator.WireQuestion{openQ("a", "fill-in-blank", "Q", ``)}}},
		{"null answer", &generator.QuizResponse{Questions: []generator.WireQuestion{openQ("a", "fill-in-blank", "Q", `null`)}}},
		{"blank answer", &generator.QuizResponse{Questions: []generator.WireQuestion{openQ("a", "fill-in-blank", "Q", `"  "`)}}},
		{"object answer", &generator.QuizResponse{Questions: []generator.WireQuestion{openQ("a", "logic-puzzle", "Q", `{"x":1}`)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := content.ValidateQuiz(tt.resp, 1, models.StageMiniQuiz, models.DifficultyBeginner, content.NewRand(1))
			require.Error(t, err)
			assert.ErrorIs(t, err, content.ErrInvalidQuiz)
		})
	}
}

func TestValidateLesson(t *testing.T) {
	lesson, err := content.ValidateLesson(&generator.LessonResponse{
		Title:    " Loops ",
		Content:  "Loops repeat steps.",
		Examples: []string{"repeat 3 times", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Loops", lesson.Title)
	assert.Equal(t, []string{"repeat 3 times"}, lesson.Examples)

	_, err = content.ValidateLesson(&generator.LessonResponse{Title: "   ", Content: "x"})
	assert.ErrorIs(t, err, content.ErrInvalidLesson)

	_, err = content.ValidateLesson(&generator.LessonResponse{Content: "x"})
	assert.ErrorIs(t, err, content.ErrInvalidLesson)

	_, err = content.ValidateLesson(nil)
	assert.ErrorIs(t, err, content.ErrInvalidLesson)
}
