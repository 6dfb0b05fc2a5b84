package content

import (
	"context"
	"fmt"

	"github.com/vytor/logicbuild/internal/generator"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/models"
)

// StageRef identifies the stage content is being loaded for.
type StageRef struct {
	BossName   string
	LevelID    int
	StageType  models.StageType
	Difficulty models.Difficulty
}

// Loader fetches stage content from the generator and falls back to the bank for quizzes.
type Loader struct {
	client  generator.ClientInterface
	bank    *Bank
	rng     *Rand
	metrics *metrics.Metrics
}

func NewLoader(client generator.ClientInterface, bank *Bank, rng *Rand, m *metrics.Metrics) *Loader {
	if rng == nil {
		rng = NewTimeRand()
	}
	return &Loader{client: client, bank: bank, rng: rng, metrics: m}
}

// LoadLesson returns generated lesson content. There is no local lesson
// content, so failures are returned for the caller to offer a retry.
func (l *Loader) LoadLesson(ctx context.Context, ref StageRef) (models.Lesson, error) {
	log := logger.FromContext(ctx).WithPrefix("content").WithFields(map[string]any{
		"boss":  ref.BossName,
		"level": ref.LevelID,
	})

	resp, err := l.client.GenerateLesson(ctx, generator.LessonRequest{
		BossName:        ref.BossName,
		LevelID:         ref.LevelID,
		DifficultyLevel: ref.Difficulty,
	})
	if err != nil {
		log.WithError(err).Warn("lesson generation failed")
		l.metrics.ContentFallback(metrics.KindLesson)
		return models.Lesson{}, fmt.Errorf("generate lesson: %w", err)
	}

	lesson, err := ValidateLesson(resp)
	if err != nil {
		log.WithError(err).Warn("generated lesson rejected")
		l.metrics.ContentFallback(metrics.KindLesson)
		return models.Lesson{}, err
	}
	log.Debug("lesson loaded: %s", lesson.Title)
	return lesson, nil
}

// LoadQuiz always returns a non-empty quiz. Generator failures and malformed
// responses are logged and replaced with bank questions.
func (l *Loader) LoadQuiz(ctx context.Context, ref StageRef) models.Quiz {
	log := logger.FromContext(ctx).WithPrefix("content").WithFields(map[string]any{
		"boss":  ref.BossName,
		"level": ref.LevelID,
		"stage": ref.StageType,
	})

	resp, err := l.client.GenerateQuiz(ctx, generator.QuizRequest{
		BossName:        ref.BossName,
		LevelID:         ref.LevelID,
		StageType:       ref.StageType,
		DifficultyLevel: ref.Difficulty,
		QuestionCount:   ref.StageType.QuestionCount(),
	})
	if err == nil {
		questions, verr := ValidateQuiz(resp, ref.LevelID, ref.StageType, ref.Difficulty, l.rng)
		if verr == nil {
			log.Debug("generated quiz with %d questions", len(questions))
			return models.Quiz{StageType: ref.StageType, Questions: questions, Source: models.SourceGenerated}
		}
		err = verr
	}

	log.WithError(err).Warn("using fallback quiz")
	l.metrics.ContentFallback(metrics.KindQuiz)
	return models.Quiz{
		StageType: ref.StageType,
		Questions: l.bank.FallbackQuiz(l.rng, ref.BossName, ref.LevelID, ref.StageType, ref.Difficulty),
		Source:    models.SourceFallback,
	}
}
