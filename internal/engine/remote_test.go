package engine

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagetext-io/pagetext/internal/document"
)

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 10, 10))
}

func TestNewRemote_RequiresEndpoint(t *testing.T) {
	_, err := NewRemote(RemoteConfig{}, nil)
	require.Error(t, err)
}

func TestRemote_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, "de", r.Header.Get("X-Recognition-Language"))

		_ = json.NewEncoder(w).Encode(remoteResponse{
			Text:       "Befund unauffällig",
			Confidence: 0.93,
			Boxes:      []Box{{Text: "Befund", X: 1, Y: 2, W: 30, H: 10, Confidence: 0.91}},
		})
	}))
	defer srv.Close()

	eng, err := NewRemote(RemoteConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	cfg := document.DefaultRenderConfig()
	cfg.Language = "de"
	out, err := eng.Recognize(context.Background(), testImage(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "Befund unauffällig", out.Text)
	assert.InDelta(t, 0.93, out.Confidence, 1e-9)
	require.Len(t, out.Boxes, 1)
	assert.Equal(t, "Befund", out.Boxes[0].Text)
}

func TestRemote_SynthesizesOutOfRangeConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteResponse{Text: "hello", Confidence: 7.5})
	}))
	defer srv.Close()

	eng, err := NewRemote(RemoteConfig{Endpoint: srv.URL}, nil)
	require.NoError(t, err)

	out, err := eng.Recognize(context.Background(), testImage(), document.DefaultRenderConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Confidence)
}

func TestRemote_ServiceError(t *testing.T) {
	t.Run("error field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(remoteResponse{Error: "unsupported language"})
		}))
		defer srv.Close()

		eng, err := NewRemote(RemoteConfig{Endpoint: srv.URL}, nil)
		require.NoError(t, err)

		_, err = eng.Recognize(context.Background(), testImage(), document.DefaultRenderConfig())
		var eerr *EngineError
		require.ErrorAs(t, err, &eerr)
		assert.Contains(t, eerr.Error(), "unsupported language")
	})

	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		eng, err := NewRemote(RemoteConfig{Endpoint: srv.URL}, nil)
		require.NoError(t, err)

		_, err = eng.Recognize(context.Background(), testImage(), document.DefaultRenderConfig())
		var eerr *EngineError
		require.ErrorAs(t, err, &eerr)
	})

	t.Run("garbage body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		eng, err := NewRemote(RemoteConfig{Endpoint: srv.URL}, nil)
		require.NoError(t, err)

		_, err = eng.Recognize(context.Background(), testImage(), document.DefaultRenderConfig())
		var eerr *EngineError
		require.ErrorAs(t, err, &eerr)
	})
}

func TestRemote_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	eng, err := NewRemote(RemoteConfig{Endpoint: srv.URL, RequestTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = eng.Recognize(context.Background(), testImage(), document.DefaultRenderConfig())
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestRemote_NilImage(t *testing.T) {
	eng, err := NewRemote(RemoteConfig{Endpoint: "http://localhost:0"}, nil)
	require.NoError(t, err)

	_, err = eng.Recognize(context.Background(), nil, document.DefaultRenderConfig())
	var eerr *EngineError
	require.ErrorAs(t, err, &eerr)
}
