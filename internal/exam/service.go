// Package exam implements the exam lifecycle: definitions, admission,
// grading, the result ledger, certificates and rankings.
package exam

import (
	"time"

	"github.com/pavelanni/examhall/internal/store"
)

// Recorder receives counters for accepted and rejected work.
type Recorder interface {
	Submission(outcome string)
	CertificateIssued()
}

type nopRecorder struct{}

func (nopRecorder) Submission(string)  {}
func (nopRecorder) CertificateIssued() {}

// Service groups the components of the exam core around one store.
type Service struct {
	Definitions *Definitions
	Guard       *Guard
	Ledger      *Ledger
	Issuer      *Issuer
	Ranking     *Ranking
	Results     *Results

	now func() time.Time
}

// Now reads the server clock the service was built with.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

type options struct {
	now      func() time.Time
	recorder Recorder
	numbers  NumberFunc
}

// Option configures a Service.
type Option func(*options)

// WithClock replaces the server clock used for window checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithNumberFunc replaces the certificate number generator.
func WithNumberFunc(f NumberFunc) Option {
	return func(o *options) { o.numbers = f }
}

// New wires the exam core. The store's lifecycle stays with the caller.
func New(st *store.Store, opts ...Option) *Service {
	o := options{
		now:      time.Now,
		recorder: nopRecorder{},
		numbers:  CertificateNumber,
	}
	for _, opt := range opts {
		opt(&o)
	}

	guard := &Guard{store: st}
	issuer := &Issuer{store: st, numbers: o.numbers, now: o.now, recorder: o.recorder}
	return &Service{
		Definitions: &Definitions{store: st, guard: guard, now: o.now},
		Guard:       guard,
		Ledger:      &Ledger{store: st, issuer: issuer, now: o.now, recorder: o.recorder},
		Issuer:      issuer,
		Ranking:     &Ranking{store: st},
		Results:     &Results{store: st},
		now:         o.now,
	}
}
