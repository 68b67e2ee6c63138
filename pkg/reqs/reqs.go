// pkg/reqs/reqs.go

// Package reqs runs independent environment requirement checks
// concurrently and reduces their settled outcomes into a single report.
// A failing check never cancels or short-circuits the others: the
// user-visible result is always "N of M requirements passed", never
// "validation aborted".
package reqs

import (
	"context"
	"fmt"
	"math"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// CheckFunc performs exactly one environment check. It returns a
// fulfilled message, or an error explaining why the requirement is
// unmet (typically one of the mp_err types).
type CheckFunc func(ctx context.Context) (string, error)

// Requirement is a stateless descriptor of one environment check. The
// engine never mutates it.
type Requirement struct {
	Title        string
	Check        CheckFunc
	Supplemental string // optional remediation hint shown on rejection
}

// Status is the settled outcome of one check.
type Status string

const (
	StatusFulfilled Status = "fulfilled"
	StatusRejected  Status = "rejected"
)

// SettledResult is produced once per requirement per validation run.
type SettledResult struct {
	Title           string
	Status          Status
	Message         string
	Supplemental    string
	DurationSeconds float64
}

// Fulfilled reports whether the requirement was met.
func (r SettledResult) Fulfilled() bool {
	return r.Status == StatusFulfilled
}

// Report aggregates one validation run. Immutable after construction.
type Report struct {
	AllMet  bool
	Results []SettledResult
}

// Passed counts fulfilled requirements.
func (r *Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Fulfilled() {
			n++
		}
	}
	return n
}

// Err folds all rejection messages into one error, nil when AllMet.
func (r *Report) Err() error {
	if r.AllMet {
		return nil
	}
	var result error
	for _, res := range r.Results {
		if !res.Fulfilled() {
			result = multierror.Append(result, cerr.Newf("%s: %s", res.Title, res.Message))
		}
	}
	return result
}

// Engine runs requirement sets. The logger is injected at construction;
// the engine holds no platform-specific knowledge.
type Engine struct {
	log *zap.Logger
}

// NewEngine returns an engine logging through the given logger.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// ExecuteSetup starts every check concurrently, waits for all of them
// to settle, and reduces the outcomes into a Report. Results keep the
// input order and there is always exactly one result per requirement.
// Each check owns its own timing; durations use the monotonic clock and
// are reported in seconds at millisecond precision.
func (e *Engine) ExecuteSetup(ctx context.Context, requirements []Requirement) *Report {
	results := make([]SettledResult, len(requirements))

	done := make(chan int, len(requirements))
	for i, req := range requirements {
		go func(i int, req Requirement) {
			defer func() { done <- i }()
			results[i] = e.settle(ctx, req)
		}(i, req)
	}
	for range requirements {
		<-done
	}

	report := &Report{AllMet: true, Results: results}
	for _, res := range results {
		if !res.Fulfilled() {
			report.AllMet = false
		}
	}

	e.log.Info("Requirement validation finished",
		zap.Int("passed", report.Passed()),
		zap.Int("total", len(results)),
		zap.Bool("all_met", report.AllMet),
	)
	return report
}

// settle runs one check to completion, converting panics into
// rejections so a broken check cannot take down the batch.
func (e *Engine) settle(ctx context.Context, req Requirement) (res SettledResult) {
	start := time.Now()

	defer func() {
		res.Title = req.Title
		res.Supplemental = req.Supplemental
		res.DurationSeconds = roundToMillis(time.Since(start).Seconds())
		if r := recover(); r != nil {
			res.Status = StatusRejected
			res.Message = fmt.Sprintf("check panicked: %v", r)
			e.log.Error("Requirement check panicked",
				zap.String("title", req.Title),
				zap.Any("panic", r),
			)
		}
	}()

	msg, err := req.Check(ctx)
	if err != nil {
		res.Status = StatusRejected
		res.Message = err.Error()
		return res
	}
	res.Status = StatusFulfilled
	res.Message = msg
	return res
}

func roundToMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
