package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/health-advisor/internal/model"
	"github.com/sells-group/health-advisor/internal/session"
)

// Messages shown on the recommendations view when there is nothing to list.
const (
	ProfilePromptMessage = "Please fill out your profile in the sidebar to get personalized recommendations."
	ClickUpdateMessage   = "Click 'Update Profile & Get Recommendations' in the sidebar to see your personalized recommendations."
)

func (s *Server) session(r *http.Request) (*session.Session, error) {
	sess, err := s.deps.Sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		return nil, httpErr{code: http.StatusNotFound, msg: "session not found"}
	}
	return sess, err
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.deps.Sessions.Create()
	writeStatus(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeJSON(w, nil, err)
		return
	}
	writeJSON(w, sess.View(), nil)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, nil, httpErr{code: http.StatusNotFound, msg: "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeJSON(w, nil, err)
		return
	}
	sess.Reset()
	writeJSON(w, sess.View(), nil)
}

type profileRes struct {
	Profile         model.UserProfile        `json:"profile"`
	Recommendations []RenderedRecommendation `json:"recommendations"`
	Error           string                   `json:"error,omitempty"`
}

// handleSubmitProfile stores the profile and runs a recommendation for it.
func (s *Server) handleSubmitProfile(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeJSON(w, nil, err)
		return
	}
	var p model.UserProfile
	if err := decodeBody(r, &p); err != nil {
		writeJSON(w, nil, err)
		return
	}
	if p.Age == nil {
		writeJSON(w, nil, badRequest("age is required"))
		return
	}
	if err := p.Validate(); err != nil {
		writeJSON(w, nil, badRequest(err.Error()))
		return
	}
	if err := sess.SubmitProfile(p); err != nil {
		writeJSON(w, nil, badRequest(err.Error()))
		return
	}

	recs, recErr := s.deps.Advisor.Recommend(r.Context(), p)
	sess.SetRecommendations(recs, recErr)
	stored, msg := sess.Recommendations()
	writeJSON(w, profileRes{
		Profile:         p,
		Recommendations: s.render(stored),
		Error:           msg,
	}, nil)
}

type recommendationsRes struct {
	Message         string                   `json:"message,omitempty"`
	Error           string                   `json:"error,omitempty"`
	Recommendations []RenderedRecommendation `json:"recommendations"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeJSON(w, nil, err)
		return
	}
	recs, msg := sess.Recommendations()
	res := recommendationsRes{Error: msg, Recommendations: s.render(recs)}
	switch {
	case !sess.Profile().IsSet():
		res.Message = ProfilePromptMessage
	case len(recs) == 0:
		res.Message = ClickUpdateMessage
	}
	writeJSON(w, res, nil)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeJSON(w, nil, err)
		return
	}
	writeJSON(w, map[string]any{"messages": sess.Messages()}, nil)
}

type chatReq struct {
	Question string `json:"question"`
}

// handleChat appends the question, asks the model, and appends the answer.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeJSON(w, nil, err)
		return
	}
	var req chatReq
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, nil, err)
		return
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		writeJSON(w, nil, badRequest("question is required"))
		return
	}
	sess.AppendMessage(model.RoleUser, q)
	answer := s.deps.Advisor.Answer(r.Context(), q)
	writeJSON(w, sess.AppendMessage(model.RoleAssistant, answer), nil)
}
