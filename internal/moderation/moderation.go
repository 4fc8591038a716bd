// Package moderation screens uploaded audio clips.
//
// A clip is transcribed by a Transcriber and the lower-cased transcript is
// searched for banned terms. The adapter never reports an error: anything
// that keeps it from reaching a clean transcript sends the entry to a human
// reviewer, so callers cannot tell "flagged" apart from "not evaluated".
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"event-registration/internal/metrics"
	"event-registration/internal/models"
)

var (
	ErrNoSpeech    = errors.New("no speech recognised")
	ErrUnavailable = errors.New("transcription service not configured")
)

// DefaultBannedTerms is used when no list is configured.
var DefaultBannedTerms = []string{"badword1", "badword2", "abuse"}

// Transcriber turns the audio file at path into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, path string) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Unavailable is the Transcriber used when no speech backend is configured.
type Unavailable struct{}

func (Unavailable) Transcribe(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

type Adapter struct {
	transcriber Transcriber
	terms       []string
	logger      *slog.Logger
}

func NewAdapter(t Transcriber, bannedTerms []string, logger *slog.Logger) *Adapter {
	if t == nil {
		t = Unavailable{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(bannedTerms) == 0 {
		bannedTerms = DefaultBannedTerms
	}
	terms := make([]string, 0, len(bannedTerms))
	for _, w := range bannedTerms {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			terms = append(terms, w)
		}
	}
	return &Adapter{transcriber: t, terms: terms, logger: logger.With("component", "moderation")}
}

// Evaluate returns StatusApproved when the transcript of audioPath is free of
// banned terms and StatusNeedsReview otherwise, including on any failure.
func (a *Adapter) Evaluate(ctx context.Context, audioPath string) models.Status {
	text, err := a.transcribe(ctx, audioPath)
	if err != nil {
		a.logger.Warn("audio could not be evaluated", "path", audioPath, "error", err)
		metrics.ModerationVerdicts.WithLabelValues(string(models.StatusNeedsReview), "failure").Inc()
		return models.StatusNeedsReview
	}

	if term, ok := a.match(text); ok {
		a.logger.Info("banned term in transcript", "path", audioPath, "term", term)
		metrics.ModerationVerdicts.WithLabelValues(string(models.StatusNeedsReview), "banned_term").Inc()
		return models.StatusNeedsReview
	}
	metrics.ModerationVerdicts.WithLabelValues(string(models.StatusApproved), "clean").Inc()
	return models.StatusApproved
}

func (a *Adapter) transcribe(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcriber panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err = a.transcriber.Transcribe(ctx, path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (a *Adapter) match(transcript string) (string, bool) {
	text := strings.ToLower(transcript)
	for _, term := range a.terms {
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}
