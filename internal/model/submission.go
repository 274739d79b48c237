package model

import "time"

// SubmissionStatus tracks a submission through background judging.
type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionJudging SubmissionStatus = "judging"
	SubmissionDone    SubmissionStatus = "done"
	// SubmissionFailed means judging itself broke, not that the code was wrong.
	SubmissionFailed SubmissionStatus = "failed"
)

// Verdict is the outcome of judging a submission against every test case.
type Verdict string

const (
	VerdictAccepted          Verdict = "Accepted"
	VerdictWrongAnswer       Verdict = "Wrong Answer"
	VerdictCompilationError  Verdict = "Compilation Error"
	VerdictRuntimeError      Verdict = "Runtime Error"
	VerdictTimeLimitExceeded Verdict = "Time Limit Exceeded"
	VerdictInternalError     Verdict = "Internal Error"
)

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Index    int     `json:"index"`
	Verdict  Verdict `json:"verdict"`
	Input    string  `json:"input"`
	Expected string  `json:"expected"`
	Actual   string  `json:"actual"`
	Stderr   string  `json:"stderr,omitempty"`
	ExitCode int     `json:"exitCode"`
	TimeMS   int64   `json:"timeMs"`
}

// Submission is code sent in for a problem, plus its judging result once
// Status reaches done or failed.
type Submission struct {
	ID         string           `json:"id"`
	ProblemID  string           `json:"problemId"`
	Code       string           `json:"code"`
	Status     SubmissionStatus `json:"status"`
	Verdict    Verdict          `json:"verdict,omitempty"`
	Passed     int              `json:"passed"`
	Total      int              `json:"total"`
	Cases      []CaseResult     `json:"cases"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty"`
}

// Finished reports whether judging has ended one way or the other.
func (s *Submission) Finished() bool {
	return s.Status == SubmissionDone || s.Status == SubmissionFailed
}
