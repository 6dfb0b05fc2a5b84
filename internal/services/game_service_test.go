package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/logicbuild/internal/content"
	apperrors "github.com/vytor/logicbuild/internal/errors"
	"github.com/vytor/logicbuild/internal/events"
	"github.com/vytor/logicbuild/internal/models"
	"github.com/vytor/logicbuild/internal/progress"
	"github.com/vytor/logicbuild/internal/services"
)

// fakeGateway records saves and resets. When resetGate is set, Reset blocks
// until it is closed.
type fakeGateway struct {
	mu           sync.Mutex
	loaded       *models.GameState
	source       string
	saves        []*models.GameState
	resets       int
	resetStarted chan struct{}
	resetGate    chan struct{}
}

func (g *fakeGateway) Load(context.Context) (*models.GameState, string) {
	return g.loaded, g.source
}

func (g *fakeGateway) Save(_ context.Context, s *models.GameState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, s.Clone())
}

func (g *fakeGateway) Reset(context.Context) {
	if g.resetStarted != nil {
		g.resetStarted <- struct{}{}
	}
	if g.resetGate != nil {
		<-g.resetGate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resets++
}

func (g *fakeGateway) last() *models.GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.saves) == 0 {
		return nil
	}
	return g.saves[len(g.saves)-1]
}

// stubLoader serves questions whose correct answer is always "right".
// When gate is set, calls block until it is closed.
type stubLoader struct {
	gate      chan struct{}
	started   chan struct{}
	lessonErr error
	quizCalls int
}

func (l *stubLoader) wait() {
	if l.started != nil {
		l.started <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
}

func (l *stubLoader) LoadLesson(_ context.Context, ref content.StageRef) (models.Lesson, error) {
	l.wait()
	if l.lessonErr != nil {
		return models.Lesson{}, l.lessonErr
	}
	return models.Lesson{Title: ref.BossName, Content: "body"}, nil
}

func (l *stubLoader) LoadQuiz(_ context.Context, ref content.StageRef) models.Quiz {
	l.wait()
	l.quizCalls++
	quiz := models.Quiz{StageType: ref.StageType, Source: models.SourceFallback}
	for i := 1; i <= ref.StageType.QuestionCount(); i++ {
		quiz.Questions = append(quiz.Questions, models.Question{
			ID:            fmt.Sprintf("l%d-q%d", ref.LevelID, i),
			Text:          "Question",
			Type:          models.QuestionFillInBlank,
			CorrectAnswer: "right",
		})
	}
	return quiz
}

// localEvaluator grades with the equality check only.
type localEvaluator struct{}

func (localEvaluator) Evaluate(_ context.Context, q models.Question, answer string) models.Grade {
	return models.Grade{QuestionID: q.ID, IsCorrect: q.IsCorrect(answer), Source: models.SourceFallback}
}

type GameServiceSuite struct {
	suite.Suite
	ctx      context.Context
	gateway  *fakeGateway
	loader   *stubLoader
	recorder *events.Recorder
	svc      services.GameService
}

func (s *GameServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.gateway = &fakeGateway{}
	s.loader = &stubLoader{}
	s.recorder = events.NewRecorder(100)
	bus := events.NewBus()
	bus.Subscribe(s.recorder.Handle)
	s.svc = services.NewGameService(s.gateway, s.loader, localEvaluator{}, bus, nil)
}

func TestGameServiceSuite(t *testing.T) {
	suite.Run(t, new(GameServiceSuite))
}

func (s *GameServiceSuite) requireStatus(err error, status int) {
	s.T().Helper()
	appErr, ok := apperrors.As(err)
	s.Require().True(ok, "expected AppError, got %v", err)
	s.Assert().Equal(status, appErr.Status)
}

// answerAll answers every question of the open quiz, correct ones first.
func (s *GameServiceSuite) answerAll(correct int) services.AnswerResult {
	quiz, err := s.svc.Quiz(s.ctx)
	s.Require().NoError(err)

	var res services.AnswerResult
	for i, q := range quiz.Questions {
		answer := "wrong"
		if i < correct {
			answer = "right"
		}
		res, err = s.svc.SubmitAnswer(s.ctx, q.ID, answer)
		s.Require().NoError(err)
	}
	return res
}

func (s *GameServiceSuite) playLevel(bossID, levelID, finalCorrect int) services.AnswerResult {
	_, err := s.svc.SelectBoss(s.ctx, bossID, true)
	s.Require().NoError(err)
	_, err = s.svc.SelectLevel(s.ctx, levelID)
	s.Require().NoError(err)

	_, err = s.svc.CompleteLesson(s.ctx)
	s.Require().NoError(err)
	s.answerAll(3)
	s.answerAll(3)
	return s.answerAll(finalCorrect)
}

func (s *GameServiceSuite) TestLoad_FreshAndRestored() {
	s.Assert().Equal("new", s.svc.Load(s.ctx))

	saved := progress.NewGameState(models.DifficultyIntermediate)
	saved.TotalXP = 10
	s.gateway.loaded, s.gateway.source = saved, models.SourceLocal

	s.Assert().Equal(models.SourceLocal, s.svc.Load(s.ctx))
	snap := s.svc.Snapshot(s.ctx)
	s.Assert().Equal(models.DifficultyIntermediate, snap.State.DifficultyLevel)
	s.Assert().Equal(10, snap.State.TotalXP)
}

func (s *GameServiceSuite) TestLessonScenario() {
	_, err := s.svc.SelectBoss(s.ctx, 1, false)
	s.Require().NoError(err)
	lvl, err := s.svc.SelectLevel(s.ctx, 1)
	s.Require().NoError(err)
	s.Assert().Equal(models.ViewStage, lvl.View)
	s.Require().NotNil(lvl.Selection.StageID)
	s.Assert().Equal(1, *lvl.Selection.StageID)

	lesson, err := s.svc.Lesson(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal("Logic", lesson.Title)

	res, err := s.svc.CompleteLesson(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(10, res.State.TotalXP)
	s.Assert().Equal(2, *res.State.CurrentStageID)
	s.Assert().False(res.State.Bosses[0].Levels[0].Completed)
	s.Assert().Equal(10, s.gateway.last().TotalXP)

	evts := s.recorder.Drain()
	s.Require().Len(evts, 1)
	s.Assert().Equal(events.StageCompleted, evts[0].Type)
}

func (s *GameServiceSuite) TestFinalQuizScenario() {
	res := s.playLevel(1, 1, 4)

	s.Require().NotNil(res.Completion)
	c := res.Completion
	s.Assert().True(c.Completion.LevelCompleted)
	s.Assert().Equal(2, c.Completion.Stars)
	s.Assert().Equal(models.ViewLevels, c.View)
	s.Assert().Equal(100, c.State.TotalXP)
	s.Assert().True(c.State.Bosses[0].Levels[0].Completed)
	s.Assert().Nil(c.State.CurrentStageID)

	var level []events.Event
	for _, e := range s.recorder.Drain() {
		if e.Type == events.LevelCompleted {
			level = append(level, e)
		}
	}
	s.Require().Len(level, 1)
	s.Assert().Equal(2, level[0].Stars)
}

func (s *GameServiceSuite) TestBossCompletionAwardsBadgeOnce() {
	for level := 1; level <= progress.LevelsPerBoss; level++ {
		s.playLevel(1, level, 5)
	}
	snap := s.svc.Snapshot(s.ctx)
	s.Assert().True(snap.State.Bosses[0].Completed)
	s.Assert().Equal([]string{"Logic Master"}, snap.State.Badges)
	s.Assert().Equal(models.AvatarExcited, snap.State.AvatarState)

	sel, err := s.svc.SelectLevel(s.ctx, 1)
	s.Require().NoError(err)
	s.Assert().True(sel.Selection.AlreadyCompleted)
	s.Assert().Equal(models.ViewLevels, sel.View)
}

func (s *GameServiceSuite) TestPrerequisiteWarning() {
	res, err := s.svc.SelectBoss(s.ctx, 2, false)
	s.Require().NoError(err)
	s.Assert().False(res.Selection.Navigated)
	s.Assert().NotEmpty(res.Selection.Warning)
	s.Assert().Equal(models.ViewBosses, res.View)
	s.Assert().Empty(s.gateway.saves)

	res, err = s.svc.SelectBoss(s.ctx, 2, true)
	s.Require().NoError(err)
	s.Assert().True(res.Selection.Navigated)
	s.Assert().Equal(models.ViewLevels, res.View)

	_, err = s.svc.SelectBoss(s.ctx, 9, true)
	s.requireStatus(err, http.StatusNotFound)
}

func (s *GameServiceSuite) TestBack() {
	_, err := s.svc.SelectBoss(s.ctx, 1, false)
	s.Require().NoError(err)
	_, err = s.svc.SelectLevel(s.ctx, 1)
	s.Require().NoError(err)

	s.Assert().Equal(models.ViewLevels, s.svc.Back(s.ctx).View)
	s.Assert().Equal(models.ViewBosses, s.svc.Back(s.ctx).View)
	saves := len(s.gateway.saves)
	s.Assert().Equal(models.ViewBosses, s.svc.Back(s.ctx).View)
	s.Assert().Len(s.gateway.saves, saves)
}

func (s *GameServiceSuite) TestWrongStageType() {
	_, err := s.svc.Quiz(s.ctx)
	s.requireStatus(err, http.StatusConflict)

	_, err = s.svc.SelectBoss(s.ctx, 1, false)
	s.Require().NoError(err)
	_, err = s.svc.SelectLevel(s.ctx, 1)
	s.Require().NoError(err)

	_, err = s.svc.Quiz(s.ctx)
	s.requireStatus(err, http.StatusConflict)

	_, err = s.svc.CompleteLesson(s.ctx)
	s.Require().NoError(err)
	_, err = s.svc.CompleteLesson(s.ctx)
	s.requireStatus(err, http.StatusConflict)
	_, err = s.svc.Lesson(s.ctx)
	s.requireStatus(err, http.StatusConflict)
}

func (s *GameServiceSuite) TestQuizIsReusedAndAnswersAreIdempotent() {
	_, _ = s.svc.SelectBoss(s.ctx, 1, false)
	_, _ = s.svc.SelectLevel(s.ctx, 1)
	_, err := s.svc.CompleteLesson(s.ctx)
	s.Require().NoError(err)

	quiz, err := s.svc.Quiz(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(quiz.Questions, 3)
	again, err := s.svc.Quiz(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(quiz.Questions, again.Questions)
	s.Assert().Equal(1, s.loader.quizCalls)

	first, err := s.svc.SubmitAnswer(s.ctx, quiz.Questions[0].ID, "right")
	s.Require().NoError(err)
	s.Assert().Equal(1, first.Score)

	repeat, err := s.svc.SubmitAnswer(s.ctx, quiz.Questions[0].ID, "wrong")
	s.Require().NoError(err)
	s.Assert().True(repeat.Grade.IsCorrect)
	s.Assert().Equal(1, repeat.Score)
	s.Assert().Equal(1, repeat.Answered)

	_, err = s.svc.SubmitAnswer(s.ctx, "nope", "right")
	s.requireStatus(err, http.StatusNotFound)

	snap := s.svc.Snapshot(s.ctx)
	s.Require().NotNil(snap.Quiz)
	s.Assert().Equal(1, snap.Quiz.Answered)
}

func (s *GameServiceSuite) TestSubmitWithoutQuiz() {
	_, err := s.svc.SubmitAnswer(s.ctx, "q", "a")
	s.requireStatus(err, http.StatusConflict)
}

func (s *GameServiceSuite) TestLessonUnavailable() {
	s.loader.lessonErr = errors.New("generator down")
	_, _ = s.svc.SelectBoss(s.ctx, 1, false)
	_, _ = s.svc.SelectLevel(s.ctx, 1)

	_, err := s.svc.Lesson(s.ctx)
	s.requireStatus(err, http.StatusServiceUnavailable)
}

func (s *GameServiceSuite) TestStaleQuizIsDiscarded() {
	_, _ = s.svc.SelectBoss(s.ctx, 1, false)
	_, _ = s.svc.SelectLevel(s.ctx, 1)
	_, err := s.svc.CompleteLesson(s.ctx)
	s.Require().NoError(err)

	s.loader.gate = make(chan struct{})
	s.loader.started = make(chan struct{}, 1)

	errc := make(chan error, 1)
	go func() {
		_, err := s.svc.Quiz(s.ctx)
		errc <- err
	}()

	<-s.loader.started
	s.svc.Back(s.ctx)
	close(s.loader.gate)

	err = <-errc
	s.requireStatus(err, http.StatusConflict)
	s.Assert().ErrorIs(err, services.ErrStaleContent)
	s.Assert().Nil(s.svc.Snapshot(s.ctx).Quiz)
}

func (s *GameServiceSuite) TestRestartRequiresFinishedGame() {
	_, err := s.svc.Restart(s.ctx, true)
	s.requireStatus(err, http.StatusConflict)
}

func (s *GameServiceSuite) TestWholeGameAndAdvance() {
	for boss := 1; boss <= len(progress.BossNames); boss++ {
		for level := 1; level <= progress.LevelsPerBoss; level++ {
			s.playLevel(boss, level, 5)
		}
	}
	snap := s.svc.Snapshot(s.ctx)
	s.Require().True(snap.State.AllBossesCompleted())
	s.Assert().Equal(1600, snap.State.TotalXP)

	var gameDone int
	for _, e := range s.recorder.Drain() {
		if e.Type == events.GameCompleted {
			gameDone++
		}
	}
	s.Assert().Equal(1, gameDone)

	next, err := s.svc.Restart(s.ctx, true)
	s.Require().NoError(err)
	s.Assert().Equal(models.DifficultyIntermediate, next.State.DifficultyLevel)
	s.Assert().Equal(0, next.State.TotalXP)
	s.Assert().Equal([]string{"Beginner Completed"}, next.State.Badges)
	s.Assert().Equal(models.DifficultyIntermediate, s.gateway.last().DifficultyLevel)
}

func (s *GameServiceSuite) TestReset() {
	s.playLevel(1, 1, 5)

	snap := s.svc.Reset(s.ctx)
	s.Assert().Equal(1, s.gateway.resets)
	s.Assert().Equal(0, snap.State.TotalXP)
	s.Assert().Equal(models.ViewBosses, snap.View)
}

func (s *GameServiceSuite) TestReset_StaysResponsiveDuringGatewayReset() {
	s.playLevel(1, 1, 5)
	s.gateway.resetStarted = make(chan struct{}, 1)
	s.gateway.resetGate = make(chan struct{})

	done := make(chan services.GameSnapshot, 1)
	go func() { done <- s.svc.Reset(s.ctx) }()
	<-s.gateway.resetStarted

	snapped := make(chan services.GameSnapshot, 1)
	go func() { snapped <- s.svc.Snapshot(s.ctx) }()
	select {
	case snap := <-snapped:
		s.Assert().NotZero(snap.State.TotalXP)
	case <-time.After(time.Second):
		close(s.gateway.resetGate)
		s.FailNow("snapshot blocked while the gateway was resetting")
	}

	_, err := s.svc.SelectBoss(s.ctx, 1, true)
	s.Require().NoError(err)
	s.Require().NotNil(s.gateway.last().CurrentBossID)

	close(s.gateway.resetGate)
	snap := <-done
	s.Assert().Equal(1, s.gateway.resets)
	s.Assert().Equal(0, snap.State.TotalXP)
	s.Assert().Equal(models.ViewBosses, snap.View)

	last := s.gateway.last()
	s.Assert().Nil(last.CurrentBossID)
	s.Assert().Equal(0, last.TotalXP)
}

func TestStarsFromQuizScore(t *testing.T) {
	tests := []struct {
		correct int
		stars   int
	}{
		{5, 3},
		{4, 2},
		{3, 1},
		{0, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of 5", tt.correct), func(t *testing.T) {
			s := new(GameServiceSuite)
			s.SetT(t)
			s.SetupTest()

			res := s.playLevel(1, 1, tt.correct)
			require.NotNil(t, res.Completion)
			assert.Equal(t, tt.stars, res.Completion.Completion.Stars)
		})
	}
}
