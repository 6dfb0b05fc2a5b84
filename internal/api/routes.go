package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}

	r.Route("/api/game", func(r chi.Router) {
		r.Use(noStoreHeadersMiddleware)
		if s.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(s.RequestTimeout))
		}

		r.Get("/", s.handleGetGame)
		r.Post("/bosses/{bossID}", s.handleSelectBoss)
		r.Post("/levels/{levelID}", s.handleSelectLevel)
		r.Post("/back", s.handleBack)
		r.Get("/stage/lesson", s.handleLesson)
		r.Get("/stage/quiz", s.handleQuiz)
		r.Post("/stage/answers", s.handleSubmitAnswer)
		r.Post("/stage/complete", s.handleCompleteLesson)
		r.Post("/restart", s.handleRestart)
		r.Post("/reset", s.handleReset)
		r.Get("/events", s.handleEvents)
	})
	return r
}
