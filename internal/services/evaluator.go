package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vytor/logicbuild/internal/generator"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/models"
)

// AnswerEvaluator grades one submitted answer. It never fails.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, q models.Question, answer string) models.Grade
}

type evaluator struct {
	client  generator.ClientInterface
	metrics *metrics.Metrics
}

// NewEvaluator grades with the generator and falls back to the local equality check.
func NewEvaluator(client generator.ClientInterface, m *metrics.Metrics) AnswerEvaluator {
	return &evaluator{client: client, metrics: m}
}

func (e *evaluator) Evaluate(ctx context.Context, q models.Question, answer string) models.Grade {
	log := logger.FromContext(ctx).WithPrefix("evaluator").WithField("question", q.ID)

	resp, err := e.client.GradeAnswer(ctx, generator.GradeRequest{Question: q, StudentAnswer: answer})
	if err == nil && resp != nil && resp.IsCorrect != nil {
		e.metrics.AnswerGraded(models.SourceGenerated)
		grade := models.Grade{
			QuestionID: q.ID,
			IsCorrect:  *resp.IsCorrect,
			Feedback:   strings.TrimSpace(resp.Feedback),
			Source:     models.SourceGenerated,
		}
		if grade.Feedback == "" {
			grade.Feedback = localFeedback(q, grade.IsCorrect)
		}
		return grade
	}

	switch {
	case errors.Is(err, generator.ErrDisabled):
		log.Debug("grading locally, generator disabled")
	case err != nil:
		log.WithError(err).Warn("remote grading failed, grading locally")
	default:
		log.Warn("remote grading returned no verdict, grading locally")
	}
	e.metrics.AnswerGraded(models.SourceFallback)
	e.metrics.ContentFallback(metrics.KindGrade)

	correct := q.IsCorrect(answer)
	return models.Grade{
		QuestionID: q.ID,
		IsCorrect:  correct,
		Feedback:   localFeedback(q, correct),
		Source:     models.SourceFallback,
	}
}

func localFeedback(q models.Question, correct bool) string {
	var msg string
	if correct {
		msg = "Correct!"
	} else {
		msg = fmt.Sprintf("Not quite. The correct answer is %q.", q.CorrectAnswer)
	}
	if q.Explanation != "" {
		msg += " " + q.Explanation
	}
	return msg
}
