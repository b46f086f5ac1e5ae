package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/config"
)

func TestCompleteSendsHistory(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"llama3.1",
			"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	client := NewClient(config.AIConfig{BaseURL: srv.URL, Model: "llama3.1", APIKey: "k", Timeout: time.Second})
	reply, err := client.Complete(context.Background(), []*entities.ChatMessage{
		{Role: entities.ChatRoleUser, Content: "hi"},
		{Role: entities.ChatRoleAssistant, Content: "hello"},
		{Role: entities.ChatRoleUser, Content: "how are you"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)

	assert.Equal(t, "llama3.1", received.Model)
	require.Len(t, received.Messages, 3)
	assert.Equal(t, "assistant", received.Messages[1].Role)
}

func TestCompleteSurfacesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer srv.Close()

	client := NewClient(config.AIConfig{BaseURL: srv.URL, Model: "m", APIKey: "k"})
	_, err := client.Complete(context.Background(), []*entities.ChatMessage{{Role: entities.ChatRoleUser, Content: "hi"}})
	assert.Error(t, err)
}
