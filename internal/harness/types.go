package harness

// TraceEvent records one dispatched command.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Command string `json:"command"`
	Type    string `json:"type"`
	Args    any    `json:"args,omitempty"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
	Size    int    `json:"size"`
}

// OK reports whether the command was applied.
func (e TraceEvent) OK() bool {
	return e.Outcome == outcomeOK
}

const outcomeOK = "ok"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// RunID is the run the trace was journaled under.
	RunID string `json:"run_id"`

	// Trace contains every dispatched command in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the canonical snapshot of the final state.
	Final map[string]any `json:"final,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a dispatched command to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
