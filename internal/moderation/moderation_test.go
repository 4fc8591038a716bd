package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"event-registration/internal/models"
	"event-registration/internal/testutil"
)

func fixedTranscript(text string, err error) Transcriber {
	return TranscriberFunc(func(context.Context, string) (string, error) {
		return text, err
	})
}

func TestAdapter_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		transcriber Transcriber
		want        models.Status
	}{
		{name: "clean transcript", transcriber: fixedTranscript("hello world", nil), want: models.StatusApproved},
		{name: "banned term", transcriber: fixedTranscript("this is abuse", nil), want: models.StatusNeedsReview},
		{name: "banned term case insensitive", transcriber: fixedTranscript("BadWord1 here", nil), want: models.StatusNeedsReview},
		{name: "banned term as substring", transcriber: fixedTranscript("childabusecase", nil), want: models.StatusNeedsReview},
		{name: "service error", transcriber: fixedTranscript("", errors.New("503")), want: models.StatusNeedsReview},
		{name: "no speech", transcriber: fixedTranscript("   ", nil), want: models.StatusNeedsReview},
		{name: "not configured", transcriber: Unavailable{}, want: models.StatusNeedsReview},
		{name: "nil transcriber", transcriber: nil, want: models.StatusNeedsReview},
		{
			name: "panicking transcriber",
			transcriber: TranscriberFunc(func(context.Context, string) (string, error) {
				panic("decoder exploded")
			}),
			want: models.StatusNeedsReview,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAdapter(tt.transcriber, nil, nil)
			assert.Equal(t, tt.want, a.Evaluate(context.Background(), "clip.wav"))
		})
	}
}

func TestAdapter_CustomTermsAreNormalised(t *testing.T) {
	a := NewAdapter(fixedTranscript("a Forbidden song", nil), []string{"  FORBIDDEN ", ""}, nil)
	assert.Equal(t, models.StatusNeedsReview, a.Evaluate(context.Background(), "clip.wav"))

	a = NewAdapter(fixedTranscript("abuse is not on this list", nil), []string{"forbidden"}, nil)
	assert.Equal(t, models.StatusApproved, a.Evaluate(context.Background(), "clip.wav"))
}

func TestAdapter_CancelledContextNeedsReview(t *testing.T) {
	called := false
	a := NewAdapter(TranscriberFunc(func(context.Context, string) (string, error) {
		called = true
		return "hello", nil
	}), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, models.StatusNeedsReview, a.Evaluate(ctx, "clip.wav"))
	assert.False(t, called)
}

func TestParseWAV(t *testing.T) {
	f, err := ParseWAV(bytes.NewReader(testutil.WAV(16000, 160)))
	require.NoError(t, err)
	assert.Equal(t, WAVFormat{AudioFormat: 1, Channels: 1, SampleRate: 16000, BitsPerSample: 16}, f)

	_, err = ParseWAV(strings.NewReader("ID3\x04 definitely an mp3"))
	assert.ErrorIs(t, err, ErrNotWAV)

	_, err = ParseWAV(bytes.NewReader(testutil.WAV(16000, 0)[:20]))
	assert.ErrorIs(t, err, ErrNotWAV)

	assert.True(t, IsWAV(testutil.WAV(8000, 1)))
	assert.False(t, IsWAV([]byte("RIFF")))
}

func TestParseWAV_RejectsCompressedFormat(t *testing.T) {
	wav := testutil.WAV(16000, 10)
	wav[20] = 3 // IEEE float format tag
	_, err := ParseWAV(bytes.NewReader(wav))
	assert.ErrorIs(t, err, ErrNotWAV)
}

func newSpeechServer(t *testing.T, transcript string, status int) (*httptest.Server, *speechRequest) {
	t.Helper()
	got := &speechRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "speech:recognize"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad audio"}}`))
			return
		}
		if transcript == "" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				map[string]any{"alternatives": []any{map[string]any{"transcript": transcript}}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

type speechRequest struct {
	Config struct {
		Encoding        string `json:"encoding"`
		SampleRateHertz int64  `json:"sampleRateHertz"`
		LanguageCode    string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

func writeClip(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "R1.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestGoogleTranscriber(t *testing.T, url string) *GoogleTranscriber {
	t.Helper()
	g, err := NewGoogleTranscriber(context.Background(), "en-IN",
		option.WithEndpoint(url+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return g
}

func TestGoogleTranscriber_Transcribe(t *testing.T) {
	srv, got := newSpeechServer(t, "Hello World", http.StatusOK)
	clip := testutil.WAV(16000, 1600)
	path := writeClip(t, clip)

	text, err := newTestGoogleTranscriber(t, srv.URL).Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)

	assert.Equal(t, "LINEAR16", got.Config.Encoding)
	assert.Equal(t, int64(16000), got.Config.SampleRateHertz)
	assert.Equal(t, "en-IN", got.Config.LanguageCode)
	assert.Equal(t, base64.StdEncoding.EncodeToString(clip), got.Audio.Content)
}

func TestGoogleTranscriber_NoResultsIsNoSpeech(t *testing.T) {
	srv, _ := newSpeechServer(t, "", http.StatusOK)
	path := writeClip(t, testutil.WAV(8000, 80))

	_, err := newTestGoogleTranscriber(t, srv.URL).Transcribe(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestGoogleTranscriber_ServiceErrorFeedsNeedsReview(t *testing.T) {
	srv, _ := newSpeechServer(t, "", http.StatusBadRequest)
	path := writeClip(t, testutil.WAV(8000, 80))
	g := newTestGoogleTranscriber(t, srv.URL)

	_, err := g.Transcribe(context.Background(), path)
	require.Error(t, err)

	a := NewAdapter(g, nil, nil)
	assert.Equal(t, models.StatusNeedsReview, a.Evaluate(context.Background(), path))
}

func TestGoogleTranscriber_CorruptFileNeverReachesService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	path := writeClip(t, []byte("not audio at all"))

	_, err := newTestGoogleTranscriber(t, srv.URL).Transcribe(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotWAV)

	_, err = newTestGoogleTranscriber(t, srv.URL).Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
