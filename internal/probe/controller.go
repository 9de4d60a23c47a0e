// Package probe orchestrates the five-stage callback-reachability
// pipeline and the background unit of work it runs in.
package probe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"opcreach/internal/config"
	"opcreach/internal/logbook"
	"opcreach/internal/netstat"
	"opcreach/internal/opc"
	"opcreach/internal/watch"
	"opcreach/pkg/model"
)

// Fixed progress checkpoints, one per stage entry. Monitor interpolates
// from its checkpoint to 100 across its polls.
const (
	pctQueryEndpoints = 10
	pctBaseline       = 25
	pctSubscribe      = 45
	pctPostCapture    = 65
	pctMonitor        = 75
	pctDone           = 100
)

// Deps are the collaborators a controller run needs. Everything is built
// fresh per run; no state is shared across probes.
type Deps struct {
	RunID   string
	Client  opc.Client
	Sockets netstat.Source
	Book    *logbook.Recorder
	Emit    func(model.Event)
	Now     func() time.Time
}

// Controller drives one probe run through
// QueryEndpoints → BaselineCapture → Subscribe → PostCapture → Monitor.
// Only a QueryEndpoints failure is fatal; every later stage degrades to a
// recorded warning and the pipeline continues.
type Controller struct {
	cfg  config.Probe
	deps Deps
}

func New(cfg config.Probe, deps Deps) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Emit == nil {
		deps.Emit = func(model.Event) {}
	}
	return &Controller{cfg: cfg, deps: deps}
}

// Run executes the pipeline. It returns exactly one result or exactly one
// fatal error, never both.
func (c *Controller) Run(ctx context.Context) (model.ProbeResult, error) {
	book := c.deps.Book

	endpointURL, host, err := config.Normalize(c.cfg.Server, c.cfg.Port)
	if err == nil {
		err = c.cfg.Validate()
	}
	if err != nil {
		book.Error(model.StageInit, "%v", err)
		book.Summary()
		return model.ProbeResult{}, err
	}

	res := model.ProbeResult{
		RunID:       c.deps.RunID,
		StartedAt:   c.deps.Now(),
		EndpointURL: endpointURL,
	}

	// QueryEndpoints: the one fatal stage. Without a confirmed reachable
	// server nothing later can be interpreted.
	c.progress("Querying server endpoints", pctQueryEndpoints)
	book.Headline(model.StageQueryEndpoints, "querying endpoints at %s", endpointURL)
	endpoints, err := c.deps.Client.Discover(ctx, endpointURL)
	if err != nil {
		book.Error(model.StageQueryEndpoints, "discovery failed: %v", err)
		book.Headline(model.StageFailed, "probe aborted")
		book.Summary()
		return model.ProbeResult{}, err
	}
	res.Endpoints = endpoints
	book.Headline(model.StageQueryEndpoints, "server offered %d endpoint(s)", len(endpoints))
	c.logEndpoints(endpoints)
	c.deps.Emit(model.PartialResultEvent{Stage: model.StageQueryEndpoints, Payload: endpoints})

	// BaselineCapture: degraded on failure.
	c.progress("Capturing baseline socket table", pctBaseline)
	res.Baseline = c.capture(ctx, model.StageBaseline)
	c.deps.Emit(model.PartialResultEvent{Stage: model.StageBaseline, Payload: res.Baseline})

	// Subscribe: a failed outcome is data, not a pipeline error.
	c.progress("Creating subscription", pctSubscribe)
	book.Headline(model.StageSubscribe, "subscribing to %s every %s", c.cfg.NodeID, c.cfg.PublishingInterval)
	res.Subscription = c.deps.Client.Subscribe(ctx, endpointURL, c.cfg.NodeID, c.cfg.PublishingInterval)
	if res.Subscription.OK {
		book.Headline(model.StageSubscribe, "subscription established on %s", res.Subscription.NodeID)
	} else {
		book.Error(model.StageSubscribe, "subscription failed: %s", res.Subscription.Error)
	}
	c.deps.Emit(model.PartialResultEvent{Stage: model.StageSubscribe, Payload: res.Subscription})

	// PostCapture + diff.
	c.progress("Capturing post-subscription socket table", pctPostCapture)
	res.PostCapture = c.capture(ctx, model.StagePostCapture)
	res.Diff = netstat.Diff(res.Baseline, res.PostCapture)
	book.Headline(model.StagePostCapture, "port diff: %d new, %d removed, net %+d",
		len(res.Diff.NewPorts), len(res.Diff.RemovedPorts), res.Diff.NetChange)
	c.logDiff(res.Diff)
	c.deps.Emit(model.PartialResultEvent{Stage: model.StagePostCapture, Payload: res.PostCapture})

	// Monitor: bounded polling for inbound connections from the server.
	c.progress("Monitoring for callback connections", pctMonitor)
	book.Headline(model.StageMonitor, "watching for connections from %s over %s (every %s)",
		host, c.cfg.WatchWindow, c.cfg.PollInterval)
	watcher := &watch.Watcher{
		Source: c.deps.Sockets,
		Now:    c.deps.Now,
		Progress: func(pct int) {
			c.progress("Monitoring for callback connections", pct)
		},
		Warnf: func(format string, args ...any) {
			book.Warn(model.StageMonitor, format, args...)
		},
	}
	attempts, err := watcher.Watch(ctx, watch.Config{
		Target:       host,
		Window:       c.cfg.WatchWindow,
		PollInterval: c.cfg.PollInterval,
		StartPercent: pctMonitor,
		EndPercent:   pctDone,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.ProbeResult{}, err
		}
		book.Warn(model.StageMonitor, "monitoring degraded: %v", err)
		attempts = []model.ConnectionAttempt{}
	}
	res.Attempts = attempts
	book.Headline(model.StageMonitor, "observed %d connection attempt(s) from %s", len(attempts), host)
	c.logAttempts(attempts)
	c.deps.Emit(model.PartialResultEvent{Stage: model.StageMonitor, Payload: attempts})

	res.FinishedAt = c.deps.Now()
	res.Warnings = book.Warnings()
	c.progress("Completed", pctDone)
	book.Headline(model.StageCompleted, "probe finished: %d endpoints, %d new ports, %d attempts",
		len(res.Endpoints), len(res.Diff.NewPorts), len(res.Attempts))
	book.Summary()
	c.deps.Emit(model.FinalResultEvent{Result: res})
	return res, nil
}

// capture takes one listening-socket snapshot. On failure it records a
// warning and substitutes an empty list so the pipeline can continue.
func (c *Controller) capture(ctx context.Context, stage model.Stage) []model.SocketRecord {
	book := c.deps.Book
	records, err := c.deps.Sockets.ListeningSockets(ctx)
	if err != nil {
		book.Warn(stage, "socket capture failed, continuing with empty list: %v", err)
		return []model.SocketRecord{}
	}
	book.Headline(stage, "captured %d listening socket(s)", len(records))
	c.logSockets(stage, records)
	return records
}

func (c *Controller) progress(task string, percent int) {
	c.deps.Emit(model.ProgressEvent{Task: task, Percent: percent})
}

func (c *Controller) logEndpoints(endpoints []model.EndpointDescriptor) {
	book := c.deps.Book
	book.Section("Discovered Endpoints", func() {
		rows := make([][]string, 0, len(endpoints))
		for _, ep := range endpoints {
			rows = append(rows, []string{
				ep.URL, ep.SecurityPolicy, ep.SecurityMode, strings.Join(ep.UserTokenKinds, ","),
			})
		}
		book.Table([]string{"URL", "Policy", "Mode", "Tokens"}, []int{40, 30, 20, 24}, rows)
	})
}

func (c *Controller) logSockets(stage model.Stage, records []model.SocketRecord) {
	book := c.deps.Book
	title := "Baseline Listening Sockets"
	if stage == model.StagePostCapture {
		title = "Post-Subscription Listening Sockets"
	}
	book.Section(title, func() {
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{r.Protocol, r.Address, r.Port, r.PID})
		}
		book.Table([]string{"Proto", "Address", "Port", "PID"}, []int{6, 40, 6, 8}, rows)
	})
}

func (c *Controller) logDiff(d model.PortDiff) {
	book := c.deps.Book
	book.Section("Port Diff", func() {
		book.Detail(model.StagePostCapture, "new: %s", strings.Join(d.NewPorts, ", "))
		book.Detail(model.StagePostCapture, "removed: %s", strings.Join(d.RemovedPorts, ", "))
		book.Detail(model.StagePostCapture, "net change: %s", strconv.Itoa(d.NetChange))
	})
}

func (c *Controller) logAttempts(attempts []model.ConnectionAttempt) {
	if len(attempts) == 0 {
		return
	}
	book := c.deps.Book
	book.Section("Observed Connection Attempts", func() {
		rows := make([][]string, 0, len(attempts))
		for _, a := range attempts {
			rows = append(rows, []string{
				a.ObservedAt.Format("15:04:05.000"),
				a.Protocol,
				fmt.Sprintf("%s:%s", a.LocalAddr, a.LocalPort),
				fmt.Sprintf("%s:%s", a.RemoteAddr, a.RemotePort),
				a.State,
				a.PID,
			})
		}
		book.Table([]string{"Time", "Proto", "Local", "Remote", "State", "PID"}, []int{12, 6, 28, 28, 12, 8}, rows)
	})
}
