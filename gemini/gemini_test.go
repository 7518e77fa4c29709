package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/datar-psa/goeqa/api"
)

const generateBody = `{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "Two chairs."}]}, "finishReason": "STOP"}],
  "usageMetadata": {"promptTokenCount": 540, "candidatesTokenCount": 3, "totalTokenCount": 543}
}`

func newTestClient(t *testing.T, status int, body string, got *map[string]any) *genai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			data, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(data, got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return client
}

func writeFrame(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 40))))
	require.NoError(t, f.Close())
	return path
}

func TestAnswerer_Answer(t *testing.T) {
	var got map[string]any
	a := NewAnswerer(newTestClient(t, http.StatusOK, generateBody, &got), nil)

	params := api.InferenceParams{Model: "gemini-2.5-flash", Seed: 1234, Temperature: 0.2, MaxTokens: 128, ImageSize: 20}
	answer, err := a.Answer(context.Background(), "How many chairs are there?", []string{writeFrame(t)}, params)
	require.NoError(t, err)
	assert.Equal(t, "Two chairs.", answer)

	contents := got["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 3)
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mimeType"])
	assert.Contains(t, parts[2].(map[string]any)["text"], "How many chairs are there?")

	cfg := got["generationConfig"].(map[string]any)
	assert.EqualValues(t, 128, cfg["maxOutputTokens"])
	assert.EqualValues(t, 1234, cfg["seed"])
}

func TestAnswerer_RejectsWideSeed(t *testing.T) {
	var got map[string]any
	a := NewAnswerer(newTestClient(t, http.StatusOK, generateBody, &got), nil)

	params := api.InferenceParams{Model: "gemini-2.5-flash", Seed: 1 << 31, MaxTokens: 128}
	_, err := a.Answer(context.Background(), "How many chairs are there?", []string{writeFrame(t)}, params)
	assert.ErrorIs(t, err, ErrSeedOutOfRange)
	assert.Nil(t, got, "no request is sent")
}

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(newTestClient(t, http.StatusOK, generateBody, nil), "gemini-2.5-flash")
	out, err := g.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Two chairs.", out)
}

func TestGenerator_NoCandidates(t *testing.T) {
	g := NewGenerator(newTestClient(t, http.StatusOK, `{"candidates": []}`, nil), "gemini-2.5-flash")
	_, err := g.Generate(context.Background(), "hello")
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "resource exhausted", status: http.StatusTooManyRequests, want: true},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: true},
		{name: "invalid argument", status: http.StatusBadRequest, want: false},
		{name: "permission denied", status: http.StatusForbidden, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := fmt.Sprintf(`{"error": {"code": %d, "message": "boom", "status": "X"}}`, tt.status)
			g := NewGenerator(newTestClient(t, tt.status, body, nil), "gemini-2.5-flash")
			_, err := g.Generate(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tt.want, IsRetryable(err))
		})
	}

	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("rpc error: code = Unavailable")))
}
