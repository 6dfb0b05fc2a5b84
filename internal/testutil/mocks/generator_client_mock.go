package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/logicbuild/internal/generator"
)

// MockGeneratorClient is a mock implementation of generator.ClientInterface
type MockGeneratorClient struct {
	mock.Mock
}

func (m *MockGeneratorClient) GenerateLesson(ctx context.Context, req generator.LessonRequest) (*generator.LessonResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generator.LessonResponse), args.Error(1)
}

func (m *MockGeneratorClient) GenerateQuiz(ctx context.Context, req generator.QuizRequest) (*generator.QuizResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generator.QuizResponse), args.Error(1)
}

func (m *MockGeneratorClient) GradeAnswer(ctx context.Context, req generator.GradeRequest) (*generator.GradeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generator.GradeResponse), args.Error(1)
}

var _ generator.ClientInterface = (*MockGeneratorClient)(nil)
