package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bump_server/models"

	"github.com/stretchr/testify/require"
)

func TestSubmitHitDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/exchange/hit", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req models.SubmitHitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "s1", req.SessionID)

		json.NewEncoder(w).Encode(models.SubmitHitResponse{
			Success: true, Matched: true, Token: "match-tok", Role: models.RoleA,
		})
	}))
	defer srv.Close()

	api := NewHTTPExchangeAPI(srv.URL, "tok")
	resp, err := api.SubmitHit(context.Background(), &models.SubmitHitRequest{SessionID: "s1", AccelerationMagnitude: 12})
	require.NoError(t, err)
	require.True(t, resp.Matched)
	require.Equal(t, "match-tok", resp.Token)
}

func TestPollStatusSendsSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/exchange/status", r.URL.Path)
		require.Equal(t, "s7", r.URL.Query().Get("sessionId"))
		json.NewEncoder(w).Encode(models.PollStatusResponse{Success: true, HasMatch: true, Token: "t", Role: models.RoleB})
	}))
	defer srv.Close()

	api := NewHTTPExchangeAPI(srv.URL, "tok")
	resp, err := api.PollStatus(context.Background(), "s7")
	require.NoError(t, err)
	require.True(t, resp.HasMatch)
	require.Equal(t, models.RoleB, resp.Role)
}

func TestErrorStatusesMapToSentinels(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, models.ErrValidation},
		{http.StatusUnauthorized, models.ErrUnauthorized},
		{http.StatusNotFound, models.ErrProfileNotFound},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "X", "message": "nope"},
			})
		}))

		api := NewHTTPExchangeAPI(srv.URL, "tok")
		_, err := api.SubmitHit(context.Background(), &models.SubmitHitRequest{SessionID: "s1"})
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestUnexpectedStatusIsPlainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	api := NewHTTPExchangeAPI(srv.URL, "tok")
	_, err := api.SubmitHit(context.Background(), &models.SubmitHitRequest{SessionID: "s1"})
	require.Error(t, err)
	require.NotErrorIs(t, err, models.ErrValidation)
}
