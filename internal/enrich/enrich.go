// Package enrich decides which AI artifacts a report view is missing, fetches
// them concurrently, and merges the successful ones into a dataset.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/examreport/internal/llm"
	"github.com/pavelanni/examreport/internal/llm/prompts"
	"github.com/pavelanni/examreport/internal/model"
)

// Artifact names used in logs and errors.
const (
	ArtifactUnitMap    = "unit map"
	ArtifactOverall    = "overall analysis"
	ArtifactIndividual = "individual analysis"
)

// Need lists the artifacts a view is missing.
type Need struct {
	UnitMap    bool
	Overall    bool
	Individual bool
}

// Any reports whether at least one artifact is needed.
func (n Need) Any() bool { return n.UnitMap || n.Overall || n.Individual }

// Plan returns the artifacts missing from the session for a class view, or
// for an individual view when student is not empty. The overall analysis is
// not needed while nobody has submitted.
func Plan(session *model.ClassSession, student string) Need {
	if session == nil {
		return Need{}
	}
	n := Need{
		UnitMap: session.QuestionUnitMap == nil,
		Overall: session.OverallAnalysis == nil && session.StudentData.SubmittedCount() > 0,
	}
	if student != "" {
		rec := session.StudentData.Student(student)
		n.Individual = rec != nil && rec.Submitted && rec.IndividualAnalysis == nil
	}
	return n
}

// Request identifies one report view. Session must be a snapshot the caller
// does not mutate while Run is in flight.
type Request struct {
	Class   string
	Date    string
	Session *model.ClassSession
	Student string
}

// Result is the outcome of one artifact fetch.
type Result[T any] struct {
	Attempted bool
	Canned    bool
	Value     T
	Err       error
}

// Failed reports whether the fetch was attempted and did not succeed.
func (r Result[T]) Failed() bool { return r.Attempted && r.Err != nil }

func (r Result[T]) ok() bool { return r.Attempted && r.Err == nil }

// Outcome collects the per-artifact results of one enrichment pass.
type Outcome struct {
	Class      string
	Date       string
	Student    string
	UnitMap    Result[model.QuestionUnitMap]
	Overall    Result[*model.OverallAnalysis]
	Individual Result[*model.IndividualAnalysis]
}

// Apply merges the successful results into ds. Each artifact is written only
// if the target is still absent, so a late result never replaces a newer one.
// It reports whether anything changed.
func (o *Outcome) Apply(ds model.TestDataset) bool {
	session := ds.Session(o.Class, o.Date)
	if session == nil {
		return false
	}

	changed := false
	if o.UnitMap.ok() && session.QuestionUnitMap == nil {
		session.QuestionUnitMap = o.UnitMap.Value
		changed = true
	}
	if o.Overall.ok() && session.OverallAnalysis == nil {
		session.OverallAnalysis = o.Overall.Value
		changed = true
	}
	if o.Individual.ok() {
		if rec := session.StudentData.Student(o.Student); rec != nil && rec.IndividualAnalysis == nil {
			rec.IndividualAnalysis = o.Individual.Value
			changed = true
		}
	}
	return changed
}

// Enricher issues the AI calls for one report view.
type Enricher struct {
	gen llm.Generator
}

// New creates an Enricher backed by the given generator.
func New(gen llm.Generator) *Enricher {
	return &Enricher{gen: gen}
}

// Run fetches every artifact the request's session is missing, in parallel,
// and waits for all of them. A failed fetch is recorded in its Result and
// never cancels the others.
func (e *Enricher) Run(ctx context.Context, req Request) *Outcome {
	out := &Outcome{Class: req.Class, Date: req.Date, Student: req.Student}
	need := Plan(req.Session, req.Student)
	if !need.Any() {
		return out
	}

	start := time.Now()
	var g errgroup.Group

	if need.UnitMap {
		out.UnitMap.Attempted = true
		g.Go(func() error {
			out.UnitMap.Value, out.UnitMap.Err = e.fetchUnitMap(ctx, req)
			e.logResult(req, ArtifactUnitMap, out.UnitMap.Err)
			return nil
		})
	}

	if need.Overall {
		out.Overall.Attempted = true
		if len(req.Session.StudentData.LowRateQuestions()) == 0 {
			out.Overall.Value, out.Overall.Canned = NoIssuesOverall(), true
		} else {
			g.Go(func() error {
				out.Overall.Value, out.Overall.Err = e.fetchOverall(ctx, req)
				e.logResult(req, ArtifactOverall, out.Overall.Err)
				return nil
			})
		}
	}

	if need.Individual {
		out.Individual.Attempted = true
		rec := req.Session.StudentData.Student(req.Student)
		switch {
		case len(rec.Incorrect()) == 0:
			out.Individual.Value, out.Individual.Canned = PerfectScoreIndividual(), true
		case req.Session.QuestionUnitMap == nil:
			out.Individual.Err = &MissingDependencyError{Artifact: ArtifactIndividual, Requires: ArtifactUnitMap}
			e.logResult(req, ArtifactIndividual, out.Individual.Err)
		default:
			g.Go(func() error {
				out.Individual.Value, out.Individual.Err = e.fetchIndividual(ctx, req, rec)
				e.logResult(req, ArtifactIndividual, out.Individual.Err)
				return nil
			})
		}
	}

	_ = g.Wait()
	slog.Debug("enrichment finished", "class", req.Class, "date", req.Date, "student", req.Student, "duration", time.Since(start))
	return out
}

func (e *Enricher) logResult(req Request, artifact string, err error) {
	if err == nil {
		slog.Info("fetched AI artifact", "artifact", artifact, "class", req.Class, "date", req.Date, "student", req.Student)
		return
	}
	slog.Error("AI artifact fetch failed", "artifact", artifact, "class", req.Class, "date", req.Date, "student", req.Student, "error", err)
}

func (e *Enricher) fetchUnitMap(ctx context.Context, req Request) (model.QuestionUnitMap, error) {
	prompt, err := prompts.BuildUnitMapPrompt(req.Class, req.Session)
	if err != nil {
		return nil, fmt.Errorf("build unit map prompt: %w", err)
	}
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseUnitMap(raw)
}

// parseUnitMap accepts a partial mapping; keys that are not positive integers are dropped.
func parseUnitMap(raw string) (model.QuestionUnitMap, error) {
	var reply map[string]any
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return nil, err
	}
	units := make(model.QuestionUnitMap, len(reply))
	for k, v := range reply {
		q, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || q < 1 {
			continue
		}
		label, ok := v.(string)
		if !ok {
			label = fmt.Sprint(v)
		}
		units[q] = strings.TrimSpace(label)
	}
	if len(units) == 0 {
		return nil, &llm.ResponseFormatError{Raw: raw, Err: errors.New("no question numbers in unit map")}
	}
	return units, nil
}

func (e *Enricher) fetchOverall(ctx context.Context, req Request) (*model.OverallAnalysis, error) {
	prompt, err := prompts.BuildOverallPrompt(req.Class, req.Session)
	if err != nil {
		return nil, fmt.Errorf("build overall prompt: %w", err)
	}
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var a model.OverallAnalysis
	if err := llm.DecodeReply(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (e *Enricher) fetchIndividual(ctx context.Context, req Request, rec *model.StudentRecord) (*model.IndividualAnalysis, error) {
	prompt, err := prompts.BuildIndividualPrompt(req.Class, req.Session, rec)
	if err != nil {
		return nil, fmt.Errorf("build individual prompt: %w", err)
	}
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var a model.IndividualAnalysis
	if err := llm.DecodeReply(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
