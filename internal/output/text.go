package output

import (
	"fmt"
	"io"

	"opcreach/pkg/model"
)

// PrintEvent renders one probe event as a plain line, for non-interactive
// use. Partial results are folded into the log stream; the final summary
// is rendered by RenderSummary.
func PrintEvent(w io.Writer, ev model.Event) {
	switch ev := ev.(type) {
	case model.ProgressEvent:
		fmt.Fprintf(w, "[%3d%%] %s\n", ev.Percent, ev.Task)
	case model.LogLineEvent:
		fmt.Fprintf(w, "       %s\n", ev.Text)
	case model.ErrorEvent:
		fmt.Fprintf(w, "error: %s\n", ev.Message)
	}
}

// RenderSummary writes the human-facing digest of a completed probe.
func RenderSummary(w io.Writer, r model.ProbeResult) {
	fmt.Fprintf(w, "\nProbe %s against %s\n", r.RunID, r.EndpointURL)
	fmt.Fprintf(w, "  endpoints discovered : %d\n", len(r.Endpoints))
	if r.Subscription.OK {
		fmt.Fprintf(w, "  subscription         : ok (%s)\n", r.Subscription.NodeID)
	} else {
		fmt.Fprintf(w, "  subscription         : failed (%s)\n", r.Subscription.Error)
	}
	fmt.Fprintf(w, "  listening sockets    : %d -> %d (net %+d)\n", len(r.Baseline), len(r.PostCapture), r.Diff.NetChange)
	for _, p := range r.Diff.NewPorts {
		fmt.Fprintf(w, "    new    %s\n", p)
	}
	for _, p := range r.Diff.RemovedPorts {
		fmt.Fprintf(w, "    gone   %s\n", p)
	}
	fmt.Fprintf(w, "  callback attempts    : %d\n", len(r.Attempts))
	for _, a := range r.Attempts {
		fmt.Fprintf(w, "    %s  %s:%s <- %s:%s  %s\n",
			a.ObservedAt.Format("15:04:05.000"), a.LocalAddr, a.LocalPort, a.RemoteAddr, a.RemotePort, a.State)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "  warnings             : %d\n", len(r.Warnings))
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "    ! %s\n", warn)
		}
	}
	verdict := "NO callback traffic observed"
	if len(r.Attempts) > 0 {
		verdict = "callback traffic observed"
	}
	fmt.Fprintf(w, "  verdict              : %s\n", verdict)
}
