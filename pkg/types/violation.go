package types

// Violation kinds raised by continuity validation. The first five are hard
// violations that reject a delta; the rest are advisory warnings unless
// strict coverage is enabled.
const (
	ViolationSequenceGap         = "sequence_gap"
	ViolationCycleDetected       = "cycle_detected"
	ViolationOverlappingInterval = "overlapping_interval"
	ViolationInvalidInterval     = "invalid_interval"
	ViolationIncoherentChain     = "incoherent_chain"
	ViolationUnknownReference    = "unknown_reference"

	ViolationCoverageShortfall  = "coverage_shortfall"
	ViolationUnknownParticipant = "unknown_participant"
	ViolationIdenticalEndpoints = "identical_endpoints"
)

// Violation describes one broken rule with enough detail for the caller to
// correct and resubmit: the rule kind, the offending item, and the existing
// item it conflicts with, when there is one.
type Violation struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	SubjectID  string `json:"subject_id,omitempty"`
	ConflictID string `json:"conflict_id,omitempty"`
}

// ValidationResult is the outcome of running a delta through continuity
// validation. OK is true when no hard violations were found; warnings are
// returned alongside a successful result.
type ValidationResult struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations,omitempty"`
	Warnings   []Violation `json:"warnings,omitempty"`
}

// AddViolation records a hard violation and clears OK.
func (r *ValidationResult) AddViolation(v Violation) {
	r.Violations = append(r.Violations, v)
	r.OK = false
}

// AddWarning records an advisory warning without affecting OK.
func (r *ValidationResult) AddWarning(v Violation) {
	r.Warnings = append(r.Warnings, v)
}

// CommitResult reports the outcome of a flush or an auto-pilot commit.
// Committed is false when validation rejected the delta; the store is then
// untouched.
type CommitResult struct {
	Committed  bool              `json:"committed"`
	Validation *ValidationResult `json:"validation"`
}
