package enums

// SubmissionState tracks a cart session's quote submission.
type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSuccess    SubmissionState = "success"
	SubmissionError      SubmissionState = "error"
)

// IsTerminal reports whether the state ends a submission attempt.
func (s SubmissionState) IsTerminal() bool {
	return s == SubmissionSuccess || s == SubmissionError
}

// CanSubmit reports whether a new submission may start from this state.
func (s SubmissionState) CanSubmit() bool {
	return s != SubmissionSubmitting
}
