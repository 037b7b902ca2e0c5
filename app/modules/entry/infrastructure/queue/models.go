package entryqueue

// EntrySweepJob drives one auto-miss sweep over entries whose attempt window
// lapsed without a self-report.
type EntrySweepJob struct{}

// Kind returns the job type identifier for River.
func (EntrySweepJob) Kind() string { return "entry_sweep" }

// VerificationSweepJob drives one expiry sweep over verifications still
// unresolved past their review deadline.
type VerificationSweepJob struct{}

// Kind returns the job type identifier for River.
func (VerificationSweepJob) Kind() string { return "verification_sweep" }
