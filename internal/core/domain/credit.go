package domain

import "time"

// CycleDuration bounds one rolling PDF credit window.
const CycleDuration = 30 * 24 * time.Hour

// CycleState describes the credit window relative to a point in time.
type CycleState string

const (
	CycleUninitialized CycleState = "uninitialized"
	CycleActive        CycleState = "active"
	CycleExpired       CycleState = "expired-pending-reset"
)

// CycleState evaluates the window without mutating it.
func (s *Stats) CycleState(now time.Time) CycleState {
	if s.PDFCycleStart == nil {
		return CycleUninitialized
	}
	if s.PDFNextReset != nil && !now.Before(*s.PDFNextReset) {
		return CycleExpired
	}
	return CycleActive
}

// CycleTransition is the re-arm a store must apply atomically:
// fresh window bounds, credits restored, per-cycle counter zeroed.
type CycleTransition struct {
	CycleStart time.Time
	NextReset  time.Time
	Credits    int
}

// AdvanceCycle evaluates the rolling window at now and applies any due
// transition to s in place. Initialization waits for the first PDF ever;
// expiry rollover runs on every call regardless of upload type, so the
// window moves forward even under non-PDF-only traffic. Returns the
// applied transition and whether one occurred.
func AdvanceCycle(s *Stats, now time.Time, isPDF bool) (CycleTransition, bool) {
	limit := s.PDFMonthlyLimit
	if limit <= 0 {
		limit = DefaultPDFMonthlyLimit
	}

	switch s.CycleState(now) {
	case CycleUninitialized:
		if !isPDF {
			return CycleTransition{}, false
		}
	case CycleActive:
		return CycleTransition{}, false
	}

	transition := CycleTransition{
		CycleStart: now,
		NextReset:  now.Add(CycleDuration),
		Credits:    limit,
	}

	start := transition.CycleStart
	reset := transition.NextReset
	s.PDFCycleStart = &start
	s.PDFNextReset = &reset
	s.PDFCreditsRemaining = transition.Credits
	s.PDFUploads = 0
	return transition, true
}

// HasCredit reports whether a PDF may be sent to analysis. The floor is
// zero; a zero balance skips enrichment instead of going negative.
func (s *Stats) HasCredit() bool {
	return s.PDFCreditsRemaining > 0
}
