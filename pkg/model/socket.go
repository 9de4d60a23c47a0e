package model

import "time"

// SocketRecord is one listening socket observed in the OS socket table.
type SocketRecord struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"` // 0.0.0.0, 127.0.0.1, ::
	Port     string `json:"port"`    // empty when the port token was unparseable
	PID      string `json:"pid"`
}

// Key identifies a record within a snapshot. Two snapshots are diffed by
// this key, so duplicates within one snapshot carry no meaning.
func (s SocketRecord) Key() string {
	return s.Address + ":" + s.Port
}

// ConnectionAttempt is one inbound connection from the target server seen
// during a monitor poll. The same connection observed on consecutive polls
// yields one attempt per poll; repetition is evidence of persistence.
type ConnectionAttempt struct {
	ObservedAt time.Time `json:"observedAt"`
	Protocol   string    `json:"protocol"`
	LocalAddr  string    `json:"localAddr"`
	LocalPort  string    `json:"localPort"`
	RemoteAddr string    `json:"remoteAddr"`
	RemotePort string    `json:"remotePort"`
	State      string    `json:"state"`
	PID        string    `json:"pid"`
}

// PortDiff is the set difference between two listening-socket snapshots,
// keyed by address:port.
type PortDiff struct {
	NewPorts     []string `json:"newPorts"`
	RemovedPorts []string `json:"removedPorts"`
	NetChange    int      `json:"netChange"`
}
