package services

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/vytor/logicbuild/internal/content"
	"github.com/vytor/logicbuild/internal/errors"
	"github.com/vytor/logicbuild/internal/events"
	"github.com/vytor/logicbuild/internal/logger"
	"github.com/vytor/logicbuild/internal/metrics"
	"github.com/vytor/logicbuild/internal/models"
	"github.com/vytor/logicbuild/internal/progress"
)

// ErrStaleContent is returned when the player navigated while content or a
// grade was being fetched; the result belongs to a position that is gone.
var ErrStaleContent = stderrors.New("stale content")

// StateGateway persists the game state. *persistence.Gateway satisfies it.
type StateGateway interface {
	Load(ctx context.Context) (*models.GameState, string)
	Save(ctx context.Context, state *models.GameState)
	Reset(ctx context.Context)
}

// ContentLoader fetches stage content. *content.Loader satisfies it.
type ContentLoader interface {
	LoadLesson(ctx context.Context, ref content.StageRef) (models.Lesson, error)
	LoadQuiz(ctx context.Context, ref content.StageRef) models.Quiz
}

// GameService owns the single GameState container and serializes every mutation.
type GameService interface {
	Load(ctx context.Context) string
	Snapshot(ctx context.Context) GameSnapshot
	SelectBoss(ctx context.Context, bossID int, confirmed bool) (BossResult, error)
	SelectLevel(ctx context.Context, levelID int) (LevelResult, error)
	Back(ctx context.Context) GameSnapshot
	Lesson(ctx context.Context) (models.Lesson, error)
	Quiz(ctx context.Context) (QuizView, error)
	SubmitAnswer(ctx context.Context, questionID, answer string) (AnswerResult, error)
	CompleteLesson(ctx context.Context) (CompletionResult, error)
	Restart(ctx context.Context, advance bool) (GameSnapshot, error)
	Reset(ctx context.Context) GameSnapshot
}

// QuizProgress summarizes the quiz attempt on the current stage.
type QuizProgress struct {
	StageType models.StageType `json:"stageType"`
	Answered  int              `json:"answered"`
	Total     int              `json:"total"`
	Score     int              `json:"score"`
}

type GameSnapshot struct {
	State *models.GameState `json:"state"`
	View  models.View       `json:"view"`
	Quiz  *QuizProgress     `json:"quiz,omitempty"`
}

type BossResult struct {
	Selection progress.BossSelection `json:"selection"`
	GameSnapshot
}

type LevelResult struct {
	Selection progress.LevelSelection `json:"selection"`
	GameSnapshot
}

// QuizView is what the player sees of a quiz: questions without answers.
type QuizView struct {
	StageType models.StageType        `json:"stageType"`
	Source    string                  `json:"source"`
	Questions []models.PublicQuestion `json:"questions"`
	Answered  []string                `json:"answered"`
	Score     int                     `json:"score"`
}

type CompletionResult struct {
	Completion progress.Completion `json:"completion"`
	GameSnapshot
}

type AnswerResult struct {
	Grade         models.Grade      `json:"grade"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation,omitempty"`
	Score         int               `json:"score"`
	Answered      int               `json:"answered"`
	Total         int               `json:"total"`
	Completion    *CompletionResult `json:"completion,omitempty"`
}

type position struct {
	boss, level, stage int
}

type quizAttempt struct {
	pos    position
	epoch  uint64
	quiz   models.Quiz
	grades map[string]models.Grade
	order  []string
	score  int
}

func (a *quizAttempt) question(id string) (models.Question, bool) {
	for _, q := range a.quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

func (a *quizAttempt) summary() *QuizProgress {
	return &QuizProgress{
		StageType: a.quiz.StageType,
		Answered:  len(a.grades),
		Total:     len(a.quiz.Questions),
		Score:     a.score,
	}
}

type gameService struct {
	gateway   StateGateway
	loader    ContentLoader
	evaluator AnswerEvaluator
	bus       *events.Bus
	metrics   *metrics.Metrics

	mu      sync.Mutex
	state   *models.GameState
	epoch   uint64
	attempt *quizAttempt
}

// NewGameService creates the service with a fresh beginner game. Call Load to
// restore a persisted one.
func NewGameService(gateway StateGateway, loader ContentLoader, evaluator AnswerEvaluator, bus *events.Bus, m *metrics.Metrics) GameService {
	if bus == nil {
		bus = events.NewBus()
	}
	return &gameService{
		gateway:   gateway,
		loader:    loader,
		evaluator: evaluator,
		bus:       bus,
		metrics:   m,
		state:     progress.NewGameState(models.DifficultyBeginner),
	}
}

// Load restores the persisted state and reports its source, or "new" when
// nothing was stored.
func (s *gameService) Load(ctx context.Context) string {
	log := logger.FromContext(ctx).WithPrefix("game")

	state, source := s.gateway.Load(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.attempt = nil
	if state == nil {
		s.state = progress.NewGameState(models.DifficultyBeginner)
		log.Info("no saved game, starting fresh")
		return "new"
	}
	s.state = state
	log.Info("game restored from %s: xp=%d badges=%d", source, state.TotalXP, len(state.Badges))
	return source
}

func (s *gameService) Snapshot(ctx context.Context) GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *gameService) snapshotLocked() GameSnapshot {
	snap := GameSnapshot{State: s.state.Clone(), View: s.state.View()}
	if a := s.currentAttemptLocked(); a != nil {
		snap.Quiz = a.summary()
	}
	return snap
}

func (s *gameService) positionLocked() (position, bool) {
	st := s.state
	if st.CurrentBossID == nil || st.CurrentLevelID == nil || st.CurrentStageID == nil {
		return position{}, false
	}
	return position{boss: *st.CurrentBossID, level: *st.CurrentLevelID, stage: *st.CurrentStageID}, true
}

func (s *gameService) currentAttemptLocked() *quizAttempt {
	pos, ok := s.positionLocked()
	if !ok || s.attempt == nil || s.attempt.pos != pos || s.attempt.epoch != s.epoch {
		return nil
	}
	return s.attempt
}

// navigatedLocked invalidates in-flight content and persists the new position.
func (s *gameService) navigatedLocked(ctx context.Context) {
	s.epoch++
	s.attempt = nil
	s.gateway.Save(ctx, s.state)
}

func (s *gameService) SelectBoss(ctx context.Context, bossID int, confirmed bool) (BossResult, error) {
	log := logger.FromContext(ctx).WithPrefix("game")
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, err := progress.SelectBoss(s.state, bossID, confirmed)
	if err != nil {
		return BossResult{}, mapProgressError(err)
	}
	if sel.Navigated {
		s.navigatedLocked(ctx)
		log.Debug("selected boss %d", bossID)
	} else {
		log.Debug("boss %d needs confirmation", bossID)
	}
	return BossResult{Selection: sel, GameSnapshot: s.snapshotLocked()}, nil
}

func (s *gameService) SelectLevel(ctx context.Context, levelID int) (LevelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, err := progress.SelectLevel(s.state, levelID)
	if err != nil {
		return LevelResult{}, mapProgressError(err)
	}
	if !sel.AlreadyCompleted {
		s.navigatedLocked(ctx)
	}
	return LevelResult{Selection: sel, GameSnapshot: s.snapshotLocked()}, nil
}

func (s *gameService) Back(ctx context.Context) GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.state.View()
	if progress.Back(s.state) != before {
		s.navigatedLocked(ctx)
	}
	return s.snapshotLocked()
}

// stageRefLocked resolves the current stage or fails with a conflict.
func (s *gameService) stageRefLocked() (position, content.StageRef, error) {
	pos, ok := s.positionLocked()
	if !ok {
		return position{}, content.StageRef{}, errors.NewConflictError("no stage is open")
	}
	boss := s.state.Boss(pos.boss)
	if boss == nil {
		return position{}, content.StageRef{}, errors.NewNotFoundError("boss", pos.boss)
	}
	return pos, content.StageRef{
		BossName:   boss.Name,
		LevelID:    pos.level,
		StageType:  progress.StageTypeFor(pos.stage),
		Difficulty: s.state.DifficultyLevel,
	}, nil
}

// stillAtLocked reports whether pos and epoch still describe the open stage.
func (s *gameService) stillAtLocked(pos position, epoch uint64) bool {
	cur, ok := s.positionLocked()
	return ok && cur == pos && s.epoch == epoch
}

func (s *gameService) Lesson(ctx context.Context) (models.Lesson, error) {
	s.mu.Lock()
	pos, ref, err := s.stageRefLocked()
	epoch := s.epoch
	s.mu.Unlock()
	if err != nil {
		return models.Lesson{}, err
	}
	if ref.StageType != models.StageLesson {
		return models.Lesson{}, errors.NewConflictError("the open stage is not a lesson")
	}

	lesson, err := s.loader.LoadLesson(ctx, ref)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stillAtLocked(pos, epoch) {
		return models.Lesson{}, errors.NewStaleContentError(ErrStaleContent)
	}
	if err != nil {
		return models.Lesson{}, errors.NewUnavailableError("lesson content", err)
	}
	return lesson, nil
}

// Quiz returns the attempt for the open quiz stage, loading content on first request.
func (s *gameService) Quiz(ctx context.Context) (QuizView, error) {
	log := logger.FromContext(ctx).WithPrefix("game")

	s.mu.Lock()
	if a := s.currentAttemptLocked(); a != nil {
		view := quizView(a)
		s.mu.Unlock()
		return view, nil
	}
	pos, ref, err := s.stageRefLocked()
	epoch := s.epoch
	s.mu.Unlock()
	if err != nil {
		return QuizView{}, err
	}
	if !ref.StageType.IsQuiz() {
		return QuizView{}, errors.NewConflictError("the open stage is not a quiz")
	}

	quiz := s.loader.LoadQuiz(ctx, ref)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stillAtLocked(pos, epoch) {
		log.Debug("discarding quiz for %+v, player moved on", pos)
		return QuizView{}, errors.NewStaleContentError(ErrStaleContent)
	}
	if a := s.currentAttemptLocked(); a != nil {
		// A concurrent request won the race; keep its questions.
		return quizView(a), nil
	}
	s.attempt = &quizAttempt{
		pos:    pos,
		epoch:  epoch,
		quiz:   quiz,
		grades: make(map[string]models.Grade, len(quiz.Questions)),
	}
	log.Info("quiz ready: %d questions from %s", len(quiz.Questions), quiz.Source)
	return quizView(s.attempt), nil
}

func quizView(a *quizAttempt) QuizView {
	view := QuizView{
		StageType: a.quiz.StageType,
		Source:    a.quiz.Source,
		Questions: make([]models.PublicQuestion, len(a.quiz.Questions)),
		Answered:  append([]string{}, a.order...),
		Score:     a.score,
	}
	for i, q := range a.quiz.Questions {
		view.Questions[i] = q.Public()
	}
	return view
}

// SubmitAnswer grades one answer of the current attempt. Re-submitting an
// answered question returns the first grade unchanged. The stage completes
// when the last question is graded.
func (s *gameService) SubmitAnswer(ctx context.Context, questionID, answer string) (AnswerResult, error) {
	s.mu.Lock()
	a := s.currentAttemptLocked()
	if a == nil {
		s.mu.Unlock()
		return AnswerResult{}, errors.NewConflictError("no quiz in progress, load the quiz first")
	}
	q, ok := a.question(questionID)
	if !ok {
		s.mu.Unlock()
		return AnswerResult{}, errors.NewNotFoundError("question", questionID)
	}
	if g, done := a.grades[questionID]; done {
		res := answerResult(a, q, g)
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	grade := s.evaluator.Evaluate(ctx, q, answer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentAttemptLocked() != a {
		return AnswerResult{}, errors.NewStaleContentError(ErrStaleContent)
	}
	if g, done := a.grades[questionID]; done {
		return answerResult(a, q, g), nil
	}
	a.grades[questionID] = grade
	a.order = append(a.order, questionID)
	if grade.IsCorrect {
		a.score++
	}

	res := answerResult(a, q, grade)
	if len(a.grades) < len(a.quiz.Questions) {
		return res, nil
	}

	stars := progress.StarsForScore(a.score, len(a.quiz.Questions))
	completion, err := s.completeLocked(ctx, a.pos, stars)
	if err != nil {
		return AnswerResult{}, err
	}
	res.Completion = &completion
	return res, nil
}

func answerResult(a *quizAttempt, q models.Question, g models.Grade) AnswerResult {
	return AnswerResult{
		Grade:         g,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Score:         a.score,
		Answered:      len(a.grades),
		Total:         len(a.quiz.Questions),
	}
}

func (s *gameService) CompleteLesson(ctx context.Context) (CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ref, err := s.stageRefLocked()
	if err != nil {
		return CompletionResult{}, err
	}
	if ref.StageType != models.StageLesson {
		return CompletionResult{}, errors.NewConflictError("quizzes complete by answering every question")
	}
	return s.completeLocked(ctx, pos, 0)
}

func (s *gameService) completeLocked(ctx context.Context, pos position, stars int) (CompletionResult, error) {
	log := logger.FromContext(ctx).WithPrefix("game")

	c, err := progress.CompleteStage(s.state, pos.boss, pos.level, pos.stage, stars)
	if err != nil {
		return CompletionResult{}, mapProgressError(err)
	}
	if c.Applied {
		s.metrics.StageCompleted(string(c.StageType))
		s.publish(pos, c)
		log.Info("stage %d/%d/%d completed: +%d xp, total %d", pos.boss, pos.level, pos.stage, c.XPAwarded, s.state.TotalXP)
	}
	s.navigatedLocked(ctx)
	return CompletionResult{Completion: c, GameSnapshot: s.snapshotLocked()}, nil
}

func (s *gameService) publish(pos position, c progress.Completion) {
	s.bus.Publish(events.Event{
		Type:      events.StageCompleted,
		BossID:    pos.boss,
		LevelID:   pos.level,
		StageID:   pos.stage,
		StageType: string(c.StageType),
		XPAwarded: c.XPAwarded,
	})
	if c.LevelCompleted {
		s.bus.Publish(events.Event{Type: events.LevelCompleted, BossID: pos.boss, LevelID: pos.level, Stars: c.Stars})
	}
	if c.BossCompleted {
		s.bus.Publish(events.Event{Type: events.BossCompleted, BossID: pos.boss, Badge: c.Badge})
	}
	if c.GameCompleted {
		s.bus.Publish(events.Event{Type: events.GameCompleted, Difficulty: string(s.state.DifficultyLevel)})
	}
}

// Restart starts a new game after every boss is beaten: one tier harder when
// advance is set, at the same tier otherwise.
func (s *gameService) Restart(ctx context.Context, advance bool) (GameSnapshot, error) {
	log := logger.FromContext(ctx).WithPrefix("game")
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.AllBossesCompleted() {
		return GameSnapshot{}, errors.NewConflictError("the game is not finished yet")
	}
	from := s.state.DifficultyLevel
	s.state = progress.Restart(s.state, advance)
	s.navigatedLocked(ctx)
	log.Info("game restarted: %s -> %s", from, s.state.DifficultyLevel)
	return s.snapshotLocked(), nil
}

// Reset discards all progress, locally and remotely.
func (s *gameService) Reset(ctx context.Context) GameSnapshot {
	s.mu.Lock()
	s.epoch++
	s.attempt = nil
	epoch := s.epoch
	s.mu.Unlock()

	s.gateway.Reset(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	// A state change during the reset queued a save of the old state, which the
	// fresh save below supersedes.
	raced := s.epoch != epoch
	s.state = progress.NewGameState(models.DifficultyBeginner)
	s.epoch++
	s.attempt = nil
	if raced {
		s.gateway.Save(ctx, s.state)
	}
	logger.FromContext(ctx).WithPrefix("game").Info("game reset")
	return s.snapshotLocked()
}

func mapProgressError(err error) error {
	switch {
	case stderrors.Is(err, progress.ErrUnknownBoss),
		stderrors.Is(err, progress.ErrUnknownLevel),
		stderrors.Is(err, progress.ErrUnknownStage):
		return &errors.AppError{Code: errors.ErrCodeNotFound, Message: err.Error(), Status: http.StatusNotFound, Err: err}
	case stderrors.Is(err, progress.ErrNoBossSelected),
		stderrors.Is(err, progress.ErrStageLocked):
		return &errors.AppError{Code: errors.ErrCodeConflict, Message: err.Error(), Status: http.StatusConflict, Err: err}
	default:
		return errors.NewInternalError(err)
	}
}
