// Package service owns the live per-user datasets and runs uploads and
// report views against them.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/pavelanni/examreport/internal/enrich"
	"github.com/pavelanni/examreport/internal/ingest"
	"github.com/pavelanni/examreport/internal/model"
	"github.com/pavelanni/examreport/internal/report"
	"github.com/pavelanni/examreport/internal/stats"
	"github.com/pavelanni/examreport/internal/store"
)

var (
	// ErrSessionNotFound is returned for an unknown (class, date).
	ErrSessionNotFound = errors.New("class session not found")
	// ErrStudentNotFound is returned for a student not in the session.
	ErrStudentNotFound = errors.New("student not found in class session")
)

// TextExtractor pulls plain text out of an exam PDF.
type TextExtractor func(name string, r io.Reader) (string, error)

// Option configures a Service.
type Option func(*Service)

// WithColumns overrides the spreadsheet column labels and mark alphabet.
func WithColumns(c stats.Columns) Option {
	return func(s *Service) { s.cols = c }
}

// WithTextExtractor overrides PDF text extraction.
func WithTextExtractor(fn TextExtractor) Option {
	return func(s *Service) { s.extract = fn }
}

// Service holds each user's dataset in memory, loaded from the store on first use.
type Service struct {
	store    store.DocumentStore
	enricher *enrich.Enricher
	cols     stats.Columns
	extract  TextExtractor

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu     sync.Mutex
	loaded bool
	data   model.TestDataset
}

// New creates a Service.
func New(st store.DocumentStore, enricher *enrich.Enricher, opts ...Option) *Service {
	s := &Service{
		store:    st,
		enricher: enricher,
		cols:     stats.DefaultColumns(),
		extract:  ingest.ExtractPDFText,
		users:    make(map[string]*userState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) user(userID string) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = &userState{}
		s.users[userID] = u
	}
	return u
}

// lockedData returns the user's live dataset, loading it on first use.
// u.mu must be held.
func (s *Service) lockedData(ctx context.Context, userID string, u *userState) (model.TestDataset, error) {
	if u.loaded {
		return u.data, nil
	}
	ds, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		ds = model.TestDataset{}
	}
	u.data, u.loaded = ds, true
	slog.Debug("loaded dataset", "user", userID, "sessions", len(ds.Keys()))
	return ds, nil
}

// commit saves next and promotes it to live state. The live state is promoted
// even when the save fails; the save error is returned for the caller to surface.
// u.mu must be held.
func (s *Service) commit(ctx context.Context, userID string, u *userState, next model.TestDataset) error {
	u.data = next
	if err := s.store.Save(ctx, userID, next); err != nil {
		slog.Error("failed to save dataset", "user", userID, "error", err)
		return err
	}
	return nil
}

// Dataset returns a copy of the user's dataset.
func (s *Service) Dataset(ctx context.Context, userID string) (model.TestDataset, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	ds, err := s.lockedData(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	return ds.Clone(), nil
}

// Sessions lists the user's class sessions sorted by class then date.
func (s *Service) Sessions(ctx context.Context, userID string) ([]model.SessionKey, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	ds, err := s.lockedData(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	return ds.Keys(), nil
}

// ItemError is a per-pair failure in an upload batch.
type ItemError struct {
	Class string
	File  string
	Err   error
}

func (e ItemError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s (%s): %v", e.Class, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// MarshalJSON renders the failure with its message.
func (e ItemError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Class string `json:"class"`
		File  string `json:"file,omitempty"`
		Error string `json:"error"`
	}{e.Class, e.File, e.Err.Error()})
}

// UploadResult summarizes one upload batch.
type UploadResult struct {
	Sessions   []model.SessionKey `json:"sessions"`
	Failed     []ItemError        `json:"failed"`
	Unpaired   []string           `json:"unpaired"`
	References []string           `json:"references"`
	Ignored    []string           `json:"ignored"`
	Collisions []string           `json:"collisions"`
}

// Upload pairs the files, aggregates each pair into a class session and
// merges the sessions into the user's dataset, carrying over cached AI
// artifacts of sessions being replaced. A batch with no pairs fails with
// *ingest.PairingEmptyError before any state changes. A failing pair is
// reported in Failed and does not stop the others.
func (s *Service) Upload(ctx context.Context, userID string, files []ingest.File) (*UploadResult, error) {
	pr := ingest.Resolve(files)
	if len(pr.Pairs) == 0 {
		return nil, &ingest.PairingEmptyError{Files: len(files)}
	}

	res := &UploadResult{
		Unpaired:   fileNames(pr.Unpaired),
		References: fileNames(pr.ReferenceCandidates()),
		Ignored:    fileNames(pr.Ignored),
		Collisions: pr.Collisions,
	}

	classes := make([]string, 0, len(pr.Pairs))
	for class := range pr.Pairs {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	built := make(map[model.SessionKey]*model.ClassSession)
	for _, class := range classes {
		p := pr.Pairs[class]
		session, err := s.buildSession(p)
		if err != nil {
			slog.Warn("skipping class in upload", "class", class, "error", err)
			item := ItemError{Class: class, Err: err}
			var pe *ingest.ParseError
			if errors.As(err, &pe) {
				item.File = pe.File
			}
			res.Failed = append(res.Failed, item)
			continue
		}
		key := model.SessionKey{Class: p.Class, Date: p.Date}
		built[key] = session
		res.Sessions = append(res.Sessions, key)
	}
	if len(built) == 0 {
		return res, nil
	}

	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	current, err := s.lockedData(ctx, userID, u)
	if err != nil {
		return res, err
	}
	next := current.Clone()
	for key, session := range built {
		stats.Preserve(next.Session(key.Class, key.Date), session)
		next.Put(key.Class, key.Date, session)
	}
	slog.Info("upload merged", "user", userID, "sessions", len(built), "failed", len(res.Failed))
	return res, s.commit(ctx, userID, u, next)
}

func (s *Service) buildSession(p *ingest.Pair) (*model.ClassSession, error) {
	sheet, err := ingest.ReadSheet(p.Spreadsheet.Name, bytes.NewReader(p.Spreadsheet.Content))
	if err != nil {
		return nil, err
	}
	cs, err := stats.Aggregate(sheet, s.cols)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", p.Spreadsheet.Name, err)
	}
	text, err := s.extract(p.PDF.Name, bytes.NewReader(p.PDF.Content))
	if err != nil {
		return nil, err
	}
	return &model.ClassSession{ExamText: text, StudentData: *cs}, nil
}

func fileNames(files []ingest.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

// snapshot returns a private copy of one session.
func (s *Service) snapshot(ctx context.Context, userID, class, date string) (*model.ClassSession, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	ds, err := s.lockedData(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	session := ds.Session(class, date)
	if session == nil {
		return nil, fmt.Errorf("%s %s: %w", class, date, ErrSessionNotFound)
	}
	return session.Clone(), nil
}

// settle merges an enrichment outcome into a copy of the live dataset, saves
// and promotes it when anything changed, and returns a private copy of the
// resulting session.
func (s *Service) settle(ctx context.Context, userID string, out *enrich.Outcome) (*model.ClassSession, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	current, err := s.lockedData(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	var saveErr error
	if next := current.Clone(); out.Apply(next) {
		saveErr = s.commit(ctx, userID, u, next)
		current = next
	}
	session := current.Session(out.Class, out.Date)
	if session == nil {
		return nil, fmt.Errorf("%s %s: %w", out.Class, out.Date, ErrSessionNotFound)
	}
	return session.Clone(), saveErr
}

// view runs enrichment for one report view when requested and returns the
// settled session. A save failure is returned together with the session.
func (s *Service) view(ctx context.Context, userID, class, date, student string, withAI bool) (*model.ClassSession, *enrich.Outcome, error) {
	snap, err := s.snapshot(ctx, userID, class, date)
	if err != nil {
		return nil, nil, err
	}
	if student != "" && snap.StudentData.Student(student) == nil {
		return nil, nil, fmt.Errorf("%s: %w", student, ErrStudentNotFound)
	}

	out := &enrich.Outcome{Class: class, Date: date, Student: student}
	if !withAI || s.enricher == nil || !enrich.Plan(snap, student).Any() {
		return snap, out, nil
	}
	out = s.enricher.Run(ctx, enrich.Request{Class: class, Date: date, Session: snap, Student: student})

	session, err := s.settle(ctx, userID, out)
	if session == nil {
		return nil, nil, err
	}
	return session, out, err
}

// ClassReport assembles the class report for (class, date). With withAI set,
// missing AI artifacts are fetched first. A *store.PersistenceError is
// returned alongside a usable view when saving the fetched artifacts failed.
func (s *Service) ClassReport(ctx context.Context, userID, class, date string, withAI bool) (*report.ClassView, error) {
	session, out, err := s.view(ctx, userID, class, date, "", withAI)
	if session == nil {
		return nil, err
	}
	v := report.BuildClass(report.ClassInput{
		ClassName:     class,
		Date:          date,
		Stats:         &session.StudentData,
		Overall:       session.OverallAnalysis,
		OverallFailed: out.Overall.Failed(),
		UnitMap:       session.QuestionUnitMap,
		UnitMapFailed: out.UnitMap.Failed(),
	})
	v.Localize(ctx)
	return &v, err
}

// StudentReport assembles one student's report, like ClassReport.
func (s *Service) StudentReport(ctx context.Context, userID, class, date, student string, withAI bool) (*report.IndividualView, error) {
	session, out, err := s.view(ctx, userID, class, date, student, withAI)
	if session == nil {
		return nil, err
	}
	rec := session.StudentData.Student(student)
	if rec == nil {
		return nil, fmt.Errorf("%s: %w", student, ErrStudentNotFound)
	}
	v := report.BuildIndividual(report.IndividualInput{
		ClassName:      class,
		Date:           date,
		Stats:          &session.StudentData,
		Student:        rec,
		UnitMap:        session.QuestionUnitMap,
		UnitMapFailed:  out.UnitMap.Failed(),
		Analysis:       rec.IndividualAnalysis,
		AnalysisFailed: out.Individual.Failed(),
	})
	v.Localize(ctx)
	return &v, err
}
