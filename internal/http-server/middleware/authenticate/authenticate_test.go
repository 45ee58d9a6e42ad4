package authenticate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"courseadmin/entity"
	"courseadmin/lib/api/cont"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokens map[string]*entity.User

func (t tokens) AuthenticateByToken(_ context.Context, token string) (*entity.User, error) {
	if user, ok := t[token]; ok {
		return user, nil
	}
	return nil, entity.Fail(entity.ReasonAuthRequired, "invalid token")
}

func TestBearer(t *testing.T) {
	token, ok := bearer("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	token, ok = bearer("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearer("Basic abc")
	assert.False(t, ok)
	_, ok = bearer("Bearer")
	assert.False(t, ok)
	_, ok = bearer("")
	assert.False(t, ok)
}

func TestMiddleware(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := tokens{"good": {Id: "u-1", Role: entity.RoleAdmin}}

	var seen *entity.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = cont.GetUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := New(log, auth)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/groups/g-1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.Id)

	for _, header := range []string{"", "Bearer bad"} {
		req = httptest.NewRequest(http.MethodGet, "/api/groups/g-1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)

		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, string(entity.ReasonAuthRequired), body.Error)
	}
}
