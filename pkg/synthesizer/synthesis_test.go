package synthesizer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Hello there", CleanText("Hello 👋 there 🚀"))
	assert.Equal(t, "a b", CleanText("  a \n\t b  "))
	assert.Equal(t, "", CleanText("🙂"))
}

func TestNewSynthesisService(t *testing.T) {
	tests := []struct {
		provider string
		want     TTSProvider
	}{
		{"", ProviderDeepgram},
		{"deepgram", ProviderDeepgram},
		{"OpenAI", ProviderOpenAI},
		{"elevenlabs", ProviderElevenLabs},
		{"aws", ProviderAWS},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			svc, err := NewSynthesisService(Config{Provider: tt.provider, APIKey: "k"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.Provider())
		})
	}

	_, err := NewSynthesisService(Config{Provider: "azure"})
	assert.Error(t, err)
}

func TestCacheKeyDependsOnText(t *testing.T) {
	svc := NewDeepgramService(NewDeepgramTTSConfig("k"))
	assert.Equal(t, svc.CacheKey("hello"), svc.CacheKey("hello"))
	assert.NotEqual(t, svc.CacheKey("hello"), svc.CacheKey("world"))
	assert.Contains(t, svc.CacheKey("hello"), "deepgram.tts-aura-asteria-en")
}

func TestAmazonServiceDefaults(t *testing.T) {
	opt := NewAmazonTTSOption("", "")
	assert.Equal(t, "us-east-1", opt.Region)
	assert.Equal(t, types.VoiceIdKajal, opt.VoiceId)

	svc := NewAmazonService(NewAmazonTTSOption("ap-south-1", types.VoiceIdAditi))
	assert.Contains(t, svc.CacheKey("hi"), "amazon.tts-Aditi-ap-south-1")
	assert.Error(t, svc.Synthesize(context.Background(), &SynthesisBuffer{}, "  "))
}

func TestDeepgramServiceSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/speak", r.URL.Path)
		assert.Equal(t, "aura-asteria-en", r.URL.Query().Get("model"))
		assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello astronaut", body["text"])

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte{0xFF, 0xFB, 0x90, 0x00})
	}))
	defer srv.Close()

	opt := NewDeepgramTTSConfig("dg-key")
	opt.BaseURL = srv.URL
	audio, err := SynthesizeBytes(context.Background(), NewDeepgramService(opt), "Hello astronaut 🚀")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFB, 0x90, 0x00}, audio)
}

func TestDeepgramServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	opt := NewDeepgramTTSConfig("dg-key")
	opt.BaseURL = srv.URL
	_, err := SynthesizeBytes(context.Background(), NewDeepgramService(opt), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSynthesizeBytesEmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	opt := NewDeepgramTTSConfig("dg-key")
	opt.BaseURL = srv.URL
	_, err := SynthesizeBytes(context.Background(), NewDeepgramService(opt), "hi")
	assert.Error(t, err)
}

func TestOpenAIServiceSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"input":"hi there"`)
		assert.Contains(t, string(body), `"voice":"alloy"`)
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	opt := NewOpenAIConfig("sk-test")
	opt.BaseURL = srv.URL
	audio, err := SynthesizeBytes(context.Background(), NewOpenAIService(opt), "hi there")
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(audio))
}

func TestElevenLabsServiceSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		var req ElevenLabsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Text)
		_, _ = w.Write([]byte("el-audio"))
	}))
	defer srv.Close()

	opt := NewElevenLabsConfig("el-key", "voice-1")
	opt.BaseURL = srv.URL
	audio, err := SynthesizeBytes(context.Background(), NewElevenLabsService(opt), "hello")
	require.NoError(t, err)
	assert.Equal(t, "el-audio", string(audio))
}

func TestElevenLabsServiceHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	opt := NewElevenLabsConfig("el-key", "voice-1")
	opt.BaseURL = srv.URL
	_, err := SynthesizeBytes(context.Background(), NewElevenLabsService(opt), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestDeepgramServiceLive(t *testing.T) {
	apiKey := os.Getenv("DEEPGRAM_API_KEY")
	if apiKey == "" {
		t.Skip("missing DEEPGRAM_API_KEY")
	}
	audio, err := SynthesizeBytes(context.Background(), NewDeepgramService(NewDeepgramTTSConfig(apiKey)), "Hello from orbit.")
	require.NoError(t, err)
	assert.NotEmpty(t, audio)
}
