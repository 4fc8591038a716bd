package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	speechv1 "google.golang.org/api/speech/v1"
)

// GoogleTranscriber sends clips to Cloud Speech-to-Text synchronous
// recognition. Synchronous requests are limited to about a minute of audio.
type GoogleTranscriber struct {
	srv      *speechv1.Service
	language string
}

func NewGoogleTranscriber(ctx context.Context, language string, opts ...option.ClientOption) (*GoogleTranscriber, error) {
	srv, err := speechv1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech service: %w", err)
	}
	if language == "" {
		language = "en-US"
	}
	return &GoogleTranscriber{srv: srv, language: language}, nil
}

// NewGoogleTranscriberFromFile authenticates with a service account key.
func NewGoogleTranscriberFromFile(ctx context.Context, credentialsPath, language string) (*GoogleTranscriber, error) {
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("speech credentials: %w", err)
	}
	return NewGoogleTranscriber(ctx, language,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(speechv1.CloudPlatformScope),
	)
}

func (g *GoogleTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	format, err := ParseWAV(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	req := &speechv1.RecognizeRequest{
		Config: &speechv1.RecognitionConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   int64(format.SampleRate),
			AudioChannelCount: int64(format.Channels),
			LanguageCode:      g.language,
		},
		Audio: &speechv1.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(data),
		},
	}
	resp, err := g.srv.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	parts := []string{}
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}
