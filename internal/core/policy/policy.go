// Package policy decides, per scanned record, whether it is a deletion candidate and whether to act on it
package policy

import (
	"asdelete/internal/core/epoch"
	"asdelete/internal/core/setfilter"
)

// Range is an extra expiration window (Start, End] that also selects candidates
type Range struct {
	Start int64
	End   int64
}

// NoRange never matches; it is the default when no window is configured
var NoRange = Range{Start: -1, End: -1}

// Contains reports Start < exp <= End
func (r Range) Contains(exp int64) bool { return exp > r.Start && exp <= r.End }

// Policy is fixed for the duration of one sweep run
type Policy struct {
	// Threshold is the store-native expiration below which a record is a candidate
	Threshold int64

	// Range optionally selects records expiring inside (Start, End]
	Range Range

	// Limit caps deletions for the run; zero means count only
	Limit int64

	// Filter restricts the sweep to matching sets; nil or empty passes every set
	Filter *setfilter.Filter

	// KeepPersistent protects records that never expire (expiration 0), which
	// would otherwise always fall below the threshold
	KeepPersistent bool
}

// Decision is the outcome of Evaluate for one record
type Decision struct {
	// Skipped means the set filter rejected the record; it is neither candidate nor acted on
	Skipped bool

	// Candidate means the expiration rules selected the record
	Candidate bool

	// Act means a deletion should be attempted now
	Act bool
}

// IsCandidate applies the expiration rules alone
func (p Policy) IsCandidate(exp int64) bool {
	if p.KeepPersistent && exp == epoch.Never {
		return false
	}
	return exp < p.Threshold || p.Range.Contains(exp)
}

// Evaluate classifies a record given the number of deletions already counted this run
func (p Policy) Evaluate(set string, exp int64, deletedSoFar int64) Decision {
	if !p.Filter.Empty() && !p.Filter.Match(set) {
		return Decision{Skipped: true}
	}
	if !p.IsCandidate(exp) {
		return Decision{}
	}
	return Decision{Candidate: true, Act: deletedSoFar < p.Limit}
}
