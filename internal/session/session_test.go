package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/health-advisor/internal/model"
)

func intPtr(v int) *int { return &v }

func TestSession_SubmitProfile(t *testing.T) {
	st := NewStore(time.Hour)
	s := st.Create()
	assert.False(t, s.Profile().IsSet())

	s.SetRecommendations([]model.Recommendation{{Rank: 1}}, nil)
	require.NoError(t, s.SubmitProfile(model.UserProfile{Age: intPtr(30), Gender: model.GenderMale}))
	assert.True(t, s.Profile().IsSet())

	recs, msg := s.Recommendations()
	assert.Empty(t, recs, "new profile clears stale recommendations")
	assert.Empty(t, msg)
}

func TestSession_SubmitProfile_Invalid(t *testing.T) {
	s := NewStore(0).Create()
	err := s.SubmitProfile(model.UserProfile{Age: intPtr(130)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age must be between 1 and 120")
	assert.False(t, s.Profile().IsSet())

	err = s.SubmitProfile(model.UserProfile{Age: intPtr(30), FamilySize: intPtr(11)})
	assert.Error(t, err)
}

func TestSession_SetRecommendations(t *testing.T) {
	s := NewStore(0).Create()

	s.SetRecommendations(nil, errors.New("invalid api key"))
	recs, msg := s.Recommendations()
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.Equal(t, "Error getting insurance recommendations: invalid api key", msg)

	s.SetRecommendations([]model.Recommendation{{Rank: 1, Company: "A"}, {Rank: 2, Company: "B"}}, nil)
	recs, msg = s.Recommendations()
	require.Len(t, recs, 2)
	assert.Equal(t, "B", recs[1].Company)
	assert.Empty(t, msg)
}

func TestSession_Messages(t *testing.T) {
	s := NewStore(0).Create()
	s.AppendMessage(model.RoleUser, "What is co-pay?")
	reply := s.AppendMessage(model.RoleAssistant, "Your share of the bill.")
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.False(t, reply.CreatedAt.IsZero())

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is co-pay?", msgs[0].Content)

	// Returned slices are copies.
	msgs[0].Content = "changed"
	assert.Equal(t, "What is co-pay?", s.Messages()[0].Content)
}

func TestSession_Reset(t *testing.T) {
	s := NewStore(0).Create()
	id := s.ID
	require.NoError(t, s.SubmitProfile(model.UserProfile{Age: intPtr(45)}))
	s.SetRecommendations([]model.Recommendation{{Rank: 1}}, nil)
	s.AppendMessage(model.RoleUser, "hi")

	s.Reset()
	v := s.View()
	assert.Equal(t, id, v.ID)
	assert.False(t, v.Profile.IsSet())
	assert.Empty(t, v.Recommendations)
	assert.Empty(t, v.Messages)
	assert.NotNil(t, v.Messages)
}

func TestStore_CreateGetDelete(t *testing.T) {
	st := NewStore(time.Hour)
	a := st.Create()
	b := st.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, st.Len())

	got, err := st.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, st.Delete(a.ID))
	_, err = st.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Delete(a.ID), ErrNotFound)
}

func TestStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewStore(time.Hour)
	st.now = func() time.Time { return now }

	idle := st.Create()
	active := st.Create()

	now = now.Add(50 * time.Minute)
	active.AppendMessage(model.RoleUser, "still here")

	now = now.Add(20 * time.Minute)
	_, err := st.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(active.ID)
	assert.NoError(t, err)

	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 1, st.Len())
}

func TestStore_NoTTL(t *testing.T) {
	st := NewStore(0)
	st.Create()
	assert.Equal(t, 0, st.Sweep())
	assert.Equal(t, 1, st.Len())
}
