package api

import (
	"net/http"

	"github.com/vytor/logicbuild/internal/events"
	"github.com/vytor/logicbuild/internal/logger"
)

type selectBossRequest struct {
	Confirm bool `json:"confirm"`
}

type answerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

type restartRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=advance replay"`
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.GameService.Snapshot(r.Context()))
}

func (s *Server) handleSelectBoss(w http.ResponseWriter, r *http.Request) {
	bossID, err := urlParamID(r, "bossID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var req selectBossRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	confirmed := req.Confirm || parseBool(r.URL.Query().Get("confirm"))

	res, err := s.GameService.SelectBoss(r.Context(), bossID, confirmed)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if res.Selection.Warning != "" {
		logger.FromContext(r.Context()).Debug("boss %d selection needs confirmation", bossID)
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleSelectLevel(w http.ResponseWriter, r *http.Request) {
	levelID, err := urlParamID(r, "levelID")
	if err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.GameService.SelectLevel(r.Context(), levelID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.GameService.Back(r.Context()))
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := s.GameService.Lesson(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, lesson)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.GameService.Quiz(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, quiz)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	res, err := s.GameService.SubmitAnswer(r.Context(), req.QuestionID, req.Answer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	res, err := s.GameService.CompleteLesson(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	snap, err := s.GameService.Restart(r.Context(), req.Mode != "replay")
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Info("player requested a reset")
	writeJSON(w, r, http.StatusOK, s.GameService.Reset(r.Context()))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	evts := []events.Event{}
	if s.Events != nil {
		evts = s.Events.Drain()
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"events": evts})
}
