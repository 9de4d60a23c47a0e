package model

// Event is one item on the ordered stream a probe run emits toward its
// observer. Percent values across a run are monotonically non-decreasing.
type Event interface {
	probeEvent()
}

// ProgressEvent reports the current task label and overall percent.
type ProgressEvent struct {
	Task    string
	Percent int
}

// PartialResultEvent carries the data one stage produced, emitted as soon
// as that stage completes. Payload is one of: []EndpointDescriptor,
// []SocketRecord, SubscriptionOutcome, []ConnectionAttempt.
type PartialResultEvent struct {
	Stage   Stage
	Payload any
}

// FinalResultEvent carries the assembled aggregate, emitted once at the
// end of a successful (possibly degraded) run.
type FinalResultEvent struct {
	Result ProbeResult
}

// LogLineEvent forwards a headline log record to any live observer.
type LogLineEvent struct {
	Text string
}

// ErrorEvent reports the single fatal error of a failed run.
type ErrorEvent struct {
	Message string
}

// FinishedEvent is the last event of every run, successful or not.
type FinishedEvent struct{}

func (ProgressEvent) probeEvent()      {}
func (PartialResultEvent) probeEvent() {}
func (FinalResultEvent) probeEvent()   {}
func (LogLineEvent) probeEvent()       {}
func (ErrorEvent) probeEvent()         {}
func (FinishedEvent) probeEvent()      {}
