package generator

import "context"

// ClientInterface defines the content generation endpoints.
// This interface enables testability by allowing mock implementations.
type ClientInterface interface {
	GenerateLesson(ctx context.Context, req LessonRequest) (*LessonResponse, error)
	GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResponse, error)
	GradeAnswer(ctx context.Context, req GradeRequest) (*GradeResponse, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
