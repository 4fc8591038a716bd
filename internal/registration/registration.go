// Package registration accepts participant submissions.
//
// A submission is validated in full before anything touches disk. Entries
// for competitions with an audio round must carry a WAV clip; the clip is
// staged, screened by a Moderator whose verdict becomes the initial status,
// and moved to a name derived from the registration number once the rows
// are saved. Other entries are approved immediately. One participant row
// and one result row are appended and both tables saved under a single
// store update.
package registration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"event-registration/internal/metrics"
	"event-registration/internal/models"
	"event-registration/internal/moderation"
	"event-registration/internal/store"
)

const DefaultMaxAudioBytes = 20 << 20

var ErrDuplicateRegistration = errors.New("registration number already submitted")

// ValidationError reports a submission that was refused before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Moderator decides the initial status of an audio entry.
type Moderator interface {
	Evaluate(ctx context.Context, audioPath string) models.Status
}

// Observer is told about every stored submission. Failures are the
// observer's own business; the CSV files are authoritative.
type Observer interface {
	Submitted(ctx context.Context, p models.Participant, status models.Status)
}

type Submission struct {
	Name        string
	College     string
	RegNo       string
	Event       string
	Competition string
	Audio       io.Reader // nil when no file was attached
}

type Outcome struct {
	Participant models.Participant
	Status      models.Status
}

type Options struct {
	AudioDir      string
	MaxAudioBytes int64
	// UniqueRegNo refuses a second submission under a number that already
	// has a result row. Off by default: resubmissions are appended.
	UniqueRegNo bool
}

type Service struct {
	store     *store.Store
	tables    store.Tables
	moderator Moderator
	opts      Options
	observers []Observer
	logger    *slog.Logger
}

func New(st *store.Store, tables store.Tables, moderator Moderator, opts Options, logger *slog.Logger, observers ...Observer) *Service {
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = DefaultMaxAudioBytes
	}
	if opts.AudioDir == "" {
		opts.AudioDir = filepath.Join("uploads", "audio_files")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		tables:    tables,
		moderator: moderator,
		opts:      opts,
		observers: observers,
		logger:    logger.With("component", "registration"),
	}
}

// Submit validates and stores sub. It returns a *ValidationError or
// ErrDuplicateRegistration when the submission is refused; in that case
// nothing has been written.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	p, audio, err := s.validate(sub)
	if err != nil {
		return nil, err
	}
	if s.opts.UniqueRegNo {
		if err := s.checkUnique(p.RegNo); err != nil {
			return nil, err
		}
	}

	status := models.StatusApproved
	var staged string
	if p.Competition.RequiresAudio() {
		p.AudioFile = AudioPath(s.opts.AudioDir, p.RegNo)
		var cleanup func()
		staged, cleanup, err = stageAudio(p.AudioFile, audio)
		if err != nil {
			return nil, fmt.Errorf("store audio: %w", err)
		}
		defer cleanup()
		status = s.moderator.Evaluate(ctx, staged)
	}

	// Results are saved first: an interrupted write leaves a result row
	// that joins with nothing rather than a participant without a status.
	err = s.store.Update(func(t []*store.Table) error {
		results, participants := t[0], t[1]
		if s.opts.UniqueRegNo && len(results.Find(models.ColRegNo, p.RegNo)) > 0 {
			return ErrDuplicateRegistration
		}
		participants.EnsureColumns(models.ParticipantColumns...)
		results.EnsureColumns(models.ResultColumns...)
		participants.Append(p.Record())
		results.Append(models.Result{RegNo: p.RegNo, Status: status}.Record())
		return nil
	}, s.tables.Results, s.tables.Participants)
	if err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			return nil, err
		}
		return nil, fmt.Errorf("save registration %s: %w", p.RegNo, err)
	}

	// The clip replaces whatever sits at AudioFile only once both rows are saved.
	if staged != "" {
		if err := os.Rename(staged, p.AudioFile); err != nil {
			s.logger.Error("audio not moved into place", "reg_no", p.RegNo, "error", err)
			return nil, fmt.Errorf("store audio %s: %w", p.RegNo, err)
		}
	}

	metrics.Submissions.WithLabelValues(string(p.Competition), string(status)).Inc()
	s.logger.Info("registration stored", "reg_no", p.RegNo, "competition", p.Competition, "status", status)

	for _, o := range s.observers {
		o.Submitted(ctx, p, status)
	}
	return &Outcome{Participant: p, Status: status}, nil
}

func (s *Service) validate(sub Submission) (models.Participant, []byte, error) {
	p := models.Participant{
		Name:    strings.TrimSpace(sub.Name),
		College: strings.TrimSpace(sub.College),
		RegNo:   strings.TrimSpace(sub.RegNo),
		Event:   strings.TrimSpace(sub.Event),
	}
	for _, f := range []struct{ field, value string }{
		{models.ColName, p.Name},
		{models.ColCollege, p.College},
		{models.ColRegNo, p.RegNo},
		{models.ColEvent, p.Event},
	} {
		if f.value == "" {
			return p, nil, &ValidationError{Field: f.field, Message: "Fill all fields"}
		}
	}

	comp, err := models.ParseCompetition(sub.Competition)
	if err != nil {
		return p, nil, &ValidationError{Field: models.ColCompetition, Message: "Choose a competition"}
	}
	p.Competition = comp
	if !comp.RequiresAudio() {
		return p, nil, nil
	}

	if sub.Audio == nil {
		return p, nil, &ValidationError{Field: models.ColAudioFile, Message: "Upload audio file"}
	}
	audio, err := io.ReadAll(io.LimitReader(sub.Audio, s.opts.MaxAudioBytes+1))
	if err != nil {
		return p, nil, &ValidationError{Field: models.ColAudioFile, Message: "Audio upload could not be read"}
	}
	switch {
	case len(audio) == 0:
		return p, nil, &ValidationError{Field: models.ColAudioFile, Message: "Upload audio file"}
	case int64(len(audio)) > s.opts.MaxAudioBytes:
		return p, nil, &ValidationError{Field: models.ColAudioFile, Message: "Audio file is too large"}
	case !moderation.IsWAV(audio):
		return p, nil, &ValidationError{Field: models.ColAudioFile, Message: "Audio must be a WAV file"}
	}
	return p, audio, nil
}

func (s *Service) checkUnique(regNo string) error {
	results, err := s.store.Load(s.tables.Results)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	if len(results.Find(models.ColRegNo, regNo)) > 0 {
		return ErrDuplicateRegistration
	}
	return nil
}

// AudioPath is where the clip for regNo is kept. Characters that could
// escape dir or confuse a file system are replaced with '_'.
func AudioPath(dir, regNo string) string {
	var b strings.Builder
	for _, r := range regNo {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return filepath.Join(dir, b.String()+".wav")
}

// stageAudio writes data under a private directory next to final, keeping
// the final base name. cleanup removes the directory and anything left in it.
func stageAudio(final string, data []byte) (string, func(), error) {
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, err
	}
	tmpDir, err := os.MkdirTemp(dir, ".upload-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	staged := filepath.Join(tmpDir, filepath.Base(final))
	f, err := os.Create(staged)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return staged, cleanup, nil
}
