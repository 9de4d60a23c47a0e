package netstat

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"opcreach/pkg/model"
)

// headerLines is the fixed number of lines netstat prints before the first
// data row.
const headerLines = 4

// Entry is one parsed row of the OS connection table.
type Entry struct {
	Protocol   string
	LocalAddr  string
	LocalPort  string
	RemoteAddr string
	RemotePort string
	State      string
	PID        string
}

// Parse splits raw netstat output into entries. Rows with fewer than five
// columns (proto, local, remote, state, pid) are skipped, never errored.
func Parse(raw string) []Entry {
	lines := strings.Split(raw, "\n")
	if len(lines) <= headerLines {
		return nil
	}

	var entries []Entry
	for _, line := range lines[headerLines:] {
		fields := strings.Fields(line)
		// TCP 0.0.0.0:135 0.0.0.0:0 LISTENING 888
		if len(fields) < 5 {
			continue
		}
		la, lp := splitHostPort(fields[1])
		ra, rp := splitHostPort(fields[2])
		entries = append(entries, Entry{
			Protocol:   fields[0],
			LocalAddr:  la,
			LocalPort:  lp,
			RemoteAddr: ra,
			RemotePort: rp,
			State:      fields[3],
			PID:        fields[4],
		})
	}
	return entries
}

// splitHostPort splits an "address:port" token on its last colon.
// Unbracketed IPv6 text embeds colons and is not reliably separable; the
// port is whatever follows the final colon either way. An unparseable port
// yields an empty string, never an absence.
func splitHostPort(s string) (string, string) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, ""
	}
	host, port := s[:i], s[i+1:]
	if len(host) > 2 && strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if _, err := strconv.Atoi(port); err != nil {
		port = ""
	}
	return host, port
}

// Listening filters entries down to listening sockets, deduplicated by
// address:port key. The state marker matches both spellings netstat uses,
// case-insensitively.
func Listening(entries []Entry) []model.SocketRecord {
	out := []model.SocketRecord{}
	seen := make(map[string]bool)
	for _, e := range entries {
		if !isListening(e.State) {
			continue
		}
		rec := model.SocketRecord{
			Protocol: e.Protocol,
			Address:  e.LocalAddr,
			Port:     e.LocalPort,
			PID:      e.PID,
		}
		if seen[rec.Key()] {
			continue
		}
		seen[rec.Key()] = true
		out = append(out, rec)
	}
	return out
}

func isListening(state string) bool {
	s := strings.ToUpper(state)
	return s == "LISTEN" || s == "LISTENING"
}

// Source captures the live socket table.
type Source interface {
	// Table returns every row of the connection table.
	Table(ctx context.Context) ([]Entry, error)
	// ListeningSockets returns the listening subset, deduplicated by key.
	ListeningSockets(ctx context.Context) ([]model.SocketRecord, error)
}

// CommandSource shells out to the platform netstat command. Invocations
// are serialized: overlapping runs of the command interleave their output
// and produce garbage tables.
type CommandSource struct {
	mu  sync.Mutex
	run func(ctx context.Context) ([]byte, error)
}

func NewCommandSource() *CommandSource {
	return &CommandSource{run: runNetstat}
}

func runNetstat(ctx context.Context) ([]byte, error) {
	args := []string{"-an"}
	if runtime.GOOS == "windows" {
		args = []string{"-ano"}
	}
	return exec.CommandContext(ctx, "netstat", args...).Output()
}

func (s *CommandSource) Table(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.run(ctx)
	if err != nil {
		return nil, &model.CaptureError{Err: err}
	}
	return Parse(string(out)), nil
}

func (s *CommandSource) ListeningSockets(ctx context.Context) ([]model.SocketRecord, error) {
	entries, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}
	return Listening(entries), nil
}
