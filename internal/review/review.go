// Package review implements the operator side: the dashboard listing,
// approve/reject transitions, the public status check and the CSV export.
//
// The dashboard joins participants and results on reg_no as an inner join.
// A participant without a result row, or a result without a participant,
// appears in no view. Duplicate registration numbers join pairwise.
package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"event-registration/internal/auth"
	"event-registration/internal/metrics"
	"event-registration/internal/models"
	"event-registration/internal/store"
)

var (
	ErrUnauthorized = errors.New("operator login required")
	ErrNotFound     = errors.New("registration not found")
)

// Observer is told about every status change after it is saved.
type Observer interface {
	StatusChanged(ctx context.Context, regNo string, status models.Status)
}

// Entry is one row of the joined view.
type Entry struct {
	models.Participant
	Status models.Status
}

// Filter selects entries by exact event and competition. Empty means all.
type Filter struct {
	Event       string
	Competition string
}

func (f Filter) match(e Entry) bool {
	if f.Event != "" && e.Event != f.Event {
		return false
	}
	if f.Competition != "" && string(e.Competition) != f.Competition {
		return false
	}
	return true
}

type Dashboard struct {
	// Events and Competitions are the distinct values of the unfiltered join,
	// in first-seen order, for the filter pickers.
	Events       []string
	Competitions []string

	Filter      Filter
	Approved    []Entry
	NeedsReview []Entry
	Rejected    []Entry
}

// Empty reports whether there is nothing to show at all.
func (d *Dashboard) Empty() bool {
	return len(d.Events) == 0
}

type Service struct {
	store     *store.Store
	tables    store.Tables
	observers []Observer
	logger    *slog.Logger
}

func New(st *store.Store, tables store.Tables, logger *slog.Logger, observers ...Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		tables:    tables,
		observers: observers,
		logger:    logger.With("component", "review"),
	}
}

func requireOperator(ctx context.Context) error {
	if !auth.Authenticated(ctx) {
		return ErrUnauthorized
	}
	return nil
}

// join returns the inner join of both tables in participant order.
func (s *Service) join() ([]Entry, error) {
	participants, err := s.store.Load(s.tables.Participants)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	results, err := s.store.Load(s.tables.Results)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	if participants.Empty() || results.Empty() {
		return nil, nil
	}

	byRegNo := map[string][]models.Status{}
	for _, rec := range results.Records() {
		r := models.ResultFromRecord(rec)
		byRegNo[r.RegNo] = append(byRegNo[r.RegNo], r.Status)
	}
	var out []Entry
	for _, rec := range participants.Records() {
		p := models.ParticipantFromRecord(rec)
		for _, st := range byRegNo[p.RegNo] {
			out = append(out, Entry{Participant: p, Status: st})
		}
	}
	return out, nil
}

// Dashboard builds the operator view for f.
func (s *Service) Dashboard(ctx context.Context, f Filter) (*Dashboard, error) {
	if err := requireOperator(ctx); err != nil {
		return nil, err
	}
	entries, err := s.join()
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Filter: f}
	seenEvent, seenComp := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		if !seenEvent[e.Event] {
			seenEvent[e.Event] = true
			d.Events = append(d.Events, e.Event)
		}
		if c := string(e.Competition); !seenComp[c] {
			seenComp[c] = true
			d.Competitions = append(d.Competitions, c)
		}
		if !f.match(e) {
			continue
		}
		switch e.Status {
		case models.StatusApproved:
			d.Approved = append(d.Approved, e)
		case models.StatusNeedsReview:
			d.NeedsReview = append(d.NeedsReview, e)
		case models.StatusRejected:
			d.Rejected = append(d.Rejected, e)
		}
	}
	return d, nil
}

// Pending lists entries awaiting a decision.
func (s *Service) Pending(ctx context.Context) ([]Entry, error) {
	d, err := s.Dashboard(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	return d.NeedsReview, nil
}

// Approve marks every result row for regNo as approved.
//
// Callers are expected to offer this only for entries that need review;
// the transition itself does not check the current status, so repeating it
// is harmless.
func (s *Service) Approve(ctx context.Context, regNo string) error {
	return s.transition(ctx, regNo, models.StatusApproved)
}

// Reject marks every result row for regNo as rejected. Same precondition
// as Approve.
func (s *Service) Reject(ctx context.Context, regNo string) error {
	return s.transition(ctx, regNo, models.StatusRejected)
}

func (s *Service) transition(ctx context.Context, regNo string, status models.Status) error {
	if err := requireOperator(ctx); err != nil {
		return err
	}
	err := s.store.Update(func(t []*store.Table) error {
		results := t[0]
		rows := results.Find(models.ColRegNo, regNo)
		if len(rows) == 0 {
			return ErrNotFound
		}
		for _, r := range rows {
			results.Set(r, models.ColStatus, string(status))
		}
		return nil
	}, s.tables.Results)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("update %s: %w", regNo, err)
	}

	metrics.ReviewTransitions.WithLabelValues(string(status)).Inc()
	s.logger.Info("status changed", "reg_no", regNo, "status", status, "operator", auth.FromContext(ctx).Username)
	for _, o := range s.observers {
		o.StatusChanged(ctx, regNo, status)
	}
	return nil
}

// Status looks up the first result row for regNo. It needs no login.
func (s *Service) Status(ctx context.Context, regNo string) (models.Status, bool, error) {
	results, err := s.store.Load(s.tables.Results)
	if err != nil {
		return "", false, fmt.Errorf("load results: %w", err)
	}
	rows := results.Find(models.ColRegNo, regNo)
	if len(rows) == 0 {
		return "", false, nil
	}
	return models.Status(results.Value(rows[0], models.ColStatus)), true, nil
}

// Export writes the joined view as CSV, sorted by event then reg_no.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	if err := requireOperator(ctx); err != nil {
		return err
	}
	entries, err := s.join()
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Event != entries[j].Event {
			return entries[i].Event < entries[j].Event
		}
		return entries[i].RegNo < entries[j].RegNo
	})

	t := store.NewTable(append(append([]string{}, models.ParticipantColumns...), models.ColStatus)...)
	for _, e := range entries {
		rec := e.Participant.Record()
		rec[models.ColStatus] = string(e.Status)
		t.Append(rec)
	}
	return store.WriteCSV(w, t)
}
