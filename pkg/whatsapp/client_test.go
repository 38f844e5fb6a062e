package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send_Success(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Send(context.Background(), "+56912345678", "Cambio de turno")

	require.NoError(t, err)
	assert.Equal(t, "+56912345678", got.PhoneNumber)
	assert.Equal(t, "Cambio de turno", got.Message)
}

func TestClient_Send_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Send(context.Background(), "+569", "x")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "upstream down", se.Body)
}

func TestClient_Send_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 20*time.Millisecond).Send(context.Background(), "+569", "x")
	require.Error(t, err)

	retryable, _ := IsRetryable(err)
	assert.True(t, retryable, "超时应可重试")
}

func TestClient_Send_EmptyRecipient(t *testing.T) {
	err := NewClient("http://127.0.0.1:1", time.Second).Send(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrEmptyRecipient)
}

func TestClient_RateLimit_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithRateLimit(0.001))
	require.NoError(t, c.Send(context.Background(), "+569", "primero"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Send(ctx, "+569", "segundo"), "令牌耗尽时应因 context 超时返回")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"空号码", ErrEmptyRecipient, false, "empty_recipient"},
		{"取消", context.Canceled, false, "context_canceled"},
		{"超时", fmt.Errorf("call: %w", context.DeadlineExceeded), true, "timeout"},
		{"429", &StatusError{StatusCode: 429}, true, "rate_limited"},
		{"503", &StatusError{StatusCode: 503}, true, "gateway_error"},
		{"400", &StatusError{StatusCode: 400}, false, "gateway_rejected"},
		{"未知", errors.New("boom"), true, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := IsRetryable(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
