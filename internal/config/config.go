package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"opcreach/pkg/model"
)

const (
	Scheme = "opc.tcp"

	DefaultPort               = 4840
	DefaultNodeID             = "ns=0;i=2258" // Server_ServerStatus_CurrentTime
	DefaultPublishingInterval = 250 * time.Millisecond
	DefaultWatchWindow        = 30 * time.Second
	DefaultPollInterval       = 2 * time.Second
)

// Probe holds the parameters of one probe run. It is built once per
// invocation and never mutated afterwards.
type Probe struct {
	Server             string // may include a scheme prefix and an inline port
	Port               int    // 0 means unset; the inline port or nothing
	NodeID             string
	PublishingInterval time.Duration
	WatchWindow        time.Duration
	PollInterval       time.Duration
	LogDir             string
}

// Default returns a Probe with every default value filled in. Server has
// no default; it must come from the user.
func Default() Probe {
	return Probe{
		Port:               DefaultPort,
		NodeID:             DefaultNodeID,
		PublishingInterval: DefaultPublishingInterval,
		WatchWindow:        DefaultWatchWindow,
		PollInterval:       DefaultPollInterval,
		LogDir:             ".",
	}
}

// FromEnv returns Default overlaid with OPCREACH_* variables, loading a
// .env file first if one is present.
func FromEnv() Probe {
	_ = godotenv.Load()

	p := Default()
	if v := os.Getenv("OPCREACH_SERVER"); v != "" {
		p.Server = v
	}
	if v := os.Getenv("OPCREACH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Port = n
		}
	}
	if v := os.Getenv("OPCREACH_NODE_ID"); v != "" {
		p.NodeID = v
	}
	if v := os.Getenv("OPCREACH_LOG_DIR"); v != "" {
		p.LogDir = v
	}
	return p
}

// Normalize turns the user-supplied server string and port into a full
// endpoint URL plus the bare host used for remote-address matching.
//
// Rule: trim whitespace, strip a leading scheme prefix if present, and if
// the remainder ends in ":digits" split it off as an inline port. The
// inline port is used only when no port was already supplied. Fails when
// host or port is still unset afterwards.
func Normalize(server string, port int) (url, host string, err error) {
	s := strings.TrimSpace(server)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 && isDigits(s[i+1:]) {
		if port == 0 {
			port, _ = strconv.Atoi(s[i+1:])
		}
		s = s[:i]
	}
	if s == "" {
		return "", "", &model.ConfigError{Reason: "server host is required"}
	}
	if port == 0 {
		return "", "", &model.ConfigError{Reason: "server port is required"}
	}
	if port < 1 || port > 65535 {
		return "", "", &model.ConfigError{Reason: fmt.Sprintf("port %d out of range 1-65535", port)}
	}
	return fmt.Sprintf("%s://%s:%d", Scheme, s, port), s, nil
}

// Validate checks the non-address parameters.
func (p Probe) Validate() error {
	if p.PublishingInterval <= 0 {
		return &model.ConfigError{Reason: "publishing interval must be positive"}
	}
	if p.NodeID == "" {
		return &model.ConfigError{Reason: "node id is required"}
	}
	if p.PollInterval <= 0 || p.WatchWindow <= 0 {
		return &model.ConfigError{Reason: "watch window and poll interval must be positive"}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
