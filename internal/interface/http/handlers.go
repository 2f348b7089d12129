package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/langquest/langquest-core/internal/application/command"
	"github.com/langquest/langquest-core/internal/application/query"
	"github.com/langquest/langquest-core/internal/domain/progress"
	"github.com/langquest/langquest-core/internal/domain/shared"
	"github.com/langquest/langquest-core/internal/domain/subscription"
	"github.com/langquest/langquest-core/internal/interface/http/handlers"
	"github.com/langquest/langquest-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "LangQuest API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"courses":     "/api/v1/courses",
			"learn":       "/api/v1/learn",
			"leaderboard": "/api/v1/leaderboard",
			"quests":      "/api/v1/quests",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	status.Version = s.config.Version
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness check endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness check endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE & PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListCourses handles GET /api/v1/courses
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListCourses == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.ListCourses.Handle(r.Context(), query.ListCoursesQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// selectCourseRequest is the body of POST /api/v1/progress/course.
type selectCourseRequest struct {
	CourseID int64 `json:"course_id"`
}

// selectCourseResponse echoes the row and the redirect target.
type selectCourseResponse struct {
	Progress *progress.UserProgress `json:"progress"`
	Redirect string                 `json:"redirect"`
}

// handleSelectCourse handles POST /api/v1/progress/course
func (s *Server) handleSelectCourse(w http.ResponseWriter, r *http.Request) {
	if s.deps.SelectCourse == nil {
		writeNotImplemented(w, r)
		return
	}

	var req selectCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := s.deps.SelectCourse.Handle(r.Context(), command.SelectCourseCommand{
		Identity: handlers.IdentityFromContext(r.Context()),
		CourseID: req.CourseID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", result.Redirect)
	writeJSON(w, r, http.StatusSeeOther, selectCourseResponse{
		Progress: result.Progress,
		Redirect: result.Redirect,
	})
}

// handleGetProgress handles GET /api/v1/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetUserProgress == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.GetUserProgress.Handle(r.Context(), query.GetUserProgressQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetLearn handles GET /api/v1/learn
func (s *Server) handleGetLearn(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLearn == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.GetLearn.Handle(r.Context(), query.GetLearnQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetActiveLesson handles GET /api/v1/lessons/active
func (s *Server) handleGetActiveLesson(w http.ResponseWriter, r *http.Request) {
	s.serveLesson(w, r, nil)
}

// handleGetLesson handles GET /api/v1/lessons/{id}
func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.serveLesson(w, r, &id)
}

func (s *Server) serveLesson(w http.ResponseWriter, r *http.Request, lessonID *int64) {
	if s.deps.GetLesson == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.GetLesson.Handle(r.Context(), query.GetLessonQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
		LessonID: lessonID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEART & CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// reduceHeartsResponse carries the guarded outcome as data.
type reduceHeartsResponse struct {
	Outcome progress.HeartOutcome `json:"outcome"`
	Hearts  *int                  `json:"hearts,omitempty"`
}

// handleReduceHearts handles POST /api/v1/challenges/{id}/hearts
func (s *Server) handleReduceHearts(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReduceHearts == nil {
		writeNotImplemented(w, r)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.ReduceHearts.Handle(r.Context(), command.ReduceHeartsCommand{
		Identity:    handlers.IdentityFromContext(r.Context()),
		ChallengeID: id,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := reduceHeartsResponse{Outcome: result.Outcome}
	if result.Outcome == progress.HeartDeducted {
		hearts := result.Hearts
		resp.Hearts = &hearts
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// completeChallengeResponse carries the guarded outcome and the row.
type completeChallengeResponse struct {
	Outcome  progress.CompletionOutcome `json:"outcome"`
	Progress *progress.UserProgress     `json:"progress"`
}

// handleCompleteChallenge handles POST /api/v1/challenges/{id}/complete
func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	if s.deps.CompleteChallenge == nil {
		writeNotImplemented(w, r)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := s.deps.CompleteChallenge.Handle(r.Context(), command.CompleteChallengeCommand{
		Identity:    handlers.IdentityFromContext(r.Context()),
		ChallengeID: id,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, completeChallengeResponse{
		Outcome:  result.Outcome,
		Progress: result.Progress,
	})
}

// handleRefillHearts handles POST /api/v1/shop/refill
func (s *Server) handleRefillHearts(w http.ResponseWriter, r *http.Request) {
	if s.deps.RefillHearts == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.RefillHearts.Handle(r.Context(), command.RefillHeartsCommand{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result.Progress)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD, QUESTS & SUBSCRIPTION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboard == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.GetLeaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetQuests handles GET /api/v1/quests
func (s *Server) handleGetQuests(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetQuests == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.GetQuests.Handle(r.Context(), query.GetQuestsQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleGetSubscription handles GET /api/v1/subscription
func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSubscription == nil {
		writeNotImplemented(w, r)
		return
	}

	result, err := s.deps.GetSubscription.Handle(r.Context(), query.GetUserSubscriptionQuery{
		Identity: handlers.IdentityFromContext(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// webhookResponse acknowledges a delivery.
type webhookResponse struct {
	Received    bool                     `json:"received"`
	EventID     string                   `json:"event_id,omitempty"`
	Disposition subscription.Disposition `json:"disposition"`
}

// handlePaymentWebhook handles POST /webhooks/stripe
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.PaymentEvents == nil {
		writeNotImplemented(w, r)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}

	result := s.deps.PaymentEvents.Handle(r.Context(), command.ProcessPaymentEventCommand{
		Payload:   payload,
		Signature: r.Header.Get(handlers.PaymentSignatureHeader),
	})

	status := handlers.DispositionStatus(result.Disposition)
	switch status {
	case http.StatusOK:
		writeJSON(w, r, status, webhookResponse{
			Received:    true,
			EventID:     result.EventID,
			Disposition: result.Disposition,
		})
	case http.StatusBadRequest:
		writeJSONError(w, r, status, "invalid_signature", "Webhook signature verification failed")
	case http.StatusConflict:
		writeJSONError(w, r, status, "in_progress", "Event is being processed")
	default:
		writeJSONError(w, r, status, "processing_failed", "Webhook processing failed")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeError maps domain errors to HTTP statuses. Internal failures are
// logged and hidden behind a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsUnauthorized(err):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", domainMessage(err, "Not found"))
	case shared.IsValidation(err):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", domainMessage(err, "Invalid request"))
	case shared.IsBusinessRule(err):
		writeJSONError(w, r, http.StatusConflict, "business_rule", domainMessage(err, "Request conflicts with current state"))
	case errors.Is(err, command.ErrContention), shared.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, r, http.StatusServiceUnavailable, "try_again", "Please try again")
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// domainMessage returns the human-readable message of the outermost domain error.
func domainMessage(err error, fallback string) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

func writeNotImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Endpoint not configured")
}

// pathID parses the {id} path value. It writes 400 and returns false on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_id", "Invalid ID")
		return 0, false
	}
	return id, true
}

// decodeJSON decodes a bounded request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
