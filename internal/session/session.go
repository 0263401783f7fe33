// Package session keeps per-user advisor state in memory: the submitted
// profile, the latest recommendations, and the chat log.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/health-advisor/internal/model"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = eris.New("session: not found")

// Session is the state of one user's visit. It is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu                  sync.Mutex
	profile             model.UserProfile
	recommendations     []model.Recommendation
	recommendationError string
	messages            []model.ChatMessage
	updatedAt           time.Time
	now                 func() time.Time
}

// View is a copy of a session's state, safe to serialize.
type View struct {
	ID                  string                 `json:"id"`
	Profile             model.UserProfile      `json:"profile"`
	Recommendations     []model.Recommendation `json:"recommendations"`
	RecommendationError string                 `json:"recommendation_error,omitempty"`
	Messages            []model.ChatMessage    `json:"messages"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

func newSession(now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:              uuid.NewString(),
		CreatedAt:       t,
		updatedAt:       t,
		recommendations: []model.Recommendation{},
		messages:        []model.ChatMessage{},
		now:             now,
	}
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:                  s.ID,
		Profile:             s.profile,
		Recommendations:     slices.Clone(s.recommendations),
		RecommendationError: s.recommendationError,
		Messages:            slices.Clone(s.messages),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.updatedAt,
	}
}

// Profile returns the submitted profile.
func (s *Session) Profile() model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SubmitProfile validates and stores p, clearing earlier recommendations.
func (s *Session) SubmitProfile(p model.UserProfile) error {
	if err := p.Validate(); err != nil {
		return eris.Wrap(err, "session: invalid profile")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.recommendations = []model.Recommendation{}
	s.recommendationError = ""
	s.touch()
	return nil
}

// SetRecommendations replaces the recommendations wholesale. A non-nil
// err is kept as a user-visible message alongside an empty list.
func (s *Session) SetRecommendations(recs []model.Recommendation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recs == nil {
		recs = []model.Recommendation{}
	}
	s.recommendations = recs
	s.recommendationError = ""
	if err != nil {
		s.recommendationError = "Error getting insurance recommendations: " + err.Error()
	}
	s.touch()
}

// Recommendations returns the latest recommendations and error message.
func (s *Session) Recommendations() ([]model.Recommendation, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.recommendations), s.recommendationError
}

// AppendMessage adds a message to the chat log and returns it.
func (s *Session) AppendMessage(role model.Role, content string) model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := model.ChatMessage{Role: role, Content: content, CreatedAt: s.now()}
	s.messages = append(s.messages, msg)
	s.touch()
	return msg
}

// Messages returns the chat log in order.
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Reset clears the profile, recommendations, and chat log. The ID is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = model.UserProfile{}
	s.recommendations = []model.Recommendation{}
	s.recommendationError = ""
	s.messages = []model.ChatMessage{}
	s.touch()
}

// UpdatedAt returns the time of the last change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}
