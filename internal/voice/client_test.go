package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Options{APIKey: "  "})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestCreateAssistantSendsInterviewerConfig(t *testing.T) {
	var got assistantPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assistant", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"asst-1","name":"x"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "key-1", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	asst, err := c.CreateAssistant(context.Background(), InterviewAssistant("Backend Engineer", []string{"Go", "SQL"}))
	require.NoError(t, err)
	assert.Equal(t, "asst-1", asst.ID)

	assert.Equal(t, "Interviewer for Backend Engineer", got.Name)
	assert.Equal(t, DefaultModel, got.Model.Model)
	assert.Equal(t, DefaultVoiceID, got.Voice.VoiceID)
	require.Len(t, got.Model.Messages, 1)
	assert.Equal(t, "system", got.Model.Messages[0].Role)
	assert.True(t, strings.HasPrefix(got.Model.Messages[0].Content,
		"You are conducting a technical interview for a Backend Engineer position. Key skills to assess: Go, SQL."))
}

func TestStartAndStopCall(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPost {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "asst-1", body["assistantId"])
			_, _ = w.Write([]byte(`{"id":"call-1","assistantId":"asst-1","status":"queued"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	call, err := c.StartCall(context.Background(), "asst-1", map[string]string{"sessionId": "s-1"})
	require.NoError(t, err)
	assert.Equal(t, "call-1", call.ID)
	require.NoError(t, c.StopCall(context.Background(), "call-1"))

	assert.Equal(t, []string{"POST /call/web", "DELETE /call/call-1"}, paths)
}

func TestClientMapsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":["invalid key"]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.CreateAssistant(context.Background(), AssistantConfig{Name: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid key", apiErr.Message)
}
