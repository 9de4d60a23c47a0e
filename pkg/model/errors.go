package model

// ConfigError means the probe configuration is unusable (missing host,
// out-of-range port). It is fatal before the pipeline starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

// ConnectError means the transport to the server could not be established
// or the server refused discovery. It aborts the whole probe.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string { return "connect " + e.Endpoint + ": " + e.Err.Error() }
func (e *ConnectError) Unwrap() error { return e.Err }

// CaptureError means a socket-table snapshot failed. The pipeline degrades
// to an empty snapshot and records a warning.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return "socket capture: " + e.Err.Error() }
func (e *CaptureError) Unwrap() error { return e.Err }

// MonitorError means the monitoring loop failed as a whole. The pipeline
// degrades to an empty attempt list and records a warning.
type MonitorError struct {
	Err error
}

func (e *MonitorError) Error() string { return "monitor: " + e.Err.Error() }
func (e *MonitorError) Unwrap() error { return e.Err }
