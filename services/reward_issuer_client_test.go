package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardIssuerClient(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		permanent bool
	}{
		{"accepted", http.StatusOK, false, false},
		{"created", http.StatusCreated, false, false},
		{"duplicate idempotency key", http.StatusConflict, false, false},
		{"rejected", http.StatusUnprocessableEntity, true, true},
		{"server error", http.StatusInternalServerError, true, false},
		{"unavailable", http.StatusServiceUnavailable, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan issueRewardRequest, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/rewards", r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
				var body issueRewardRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				received <- body
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewRewardIssuerClient(srv.URL, "secret")
			err := client.IssueReward(context.Background(), "wallet-1", 55, "key-1")

			got := <-received
			assert.Equal(t, "wallet-1", got.Wallet)
			assert.Equal(t, int64(55), got.Amount)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var perm *permanentError
			assert.Equal(t, tt.permanent, errors.As(err, &perm))
		})
	}
}

func TestRewardIssuerClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := NewRewardIssuerClient(srv.URL, "secret").IssueReward(context.Background(), "w", 1, "k")
	require.Error(t, err)
	var perm *permanentError
	assert.False(t, errors.As(err, &perm), "network errors are retryable")
}
