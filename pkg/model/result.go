package model

import "time"

// Stage names the steps of the probe pipeline.
type Stage string

const (
	StageInit           Stage = "init"
	StageQueryEndpoints Stage = "query-endpoints"
	StageBaseline       Stage = "baseline-capture"
	StageSubscribe      Stage = "subscribe"
	StagePostCapture    Stage = "post-capture"
	StageMonitor        Stage = "monitor"
	StageCompleted      Stage = "completed"
	StageFailed         Stage = "failed"
)

// ProbeResult is the final aggregate of one probe run. A run produces
// exactly one ProbeResult or exactly one fatal error, never both.
type ProbeResult struct {
	RunID        string               `json:"runId"`
	StartedAt    time.Time            `json:"startedAt"`
	FinishedAt   time.Time            `json:"finishedAt"`
	EndpointURL  string               `json:"endpointUrl"`
	Endpoints    []EndpointDescriptor `json:"endpoints"`
	Baseline     []SocketRecord       `json:"baseline"`
	Subscription SubscriptionOutcome  `json:"subscription"`
	PostCapture  []SocketRecord       `json:"postCapture"`
	Diff         PortDiff             `json:"diff"`
	Attempts     []ConnectionAttempt  `json:"attempts"`
	Warnings     []string             `json:"warnings,omitempty"`
}
