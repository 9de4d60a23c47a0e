package app

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"opcreach/internal/config"
	"opcreach/internal/logbook"
	"opcreach/internal/netstat"
	"opcreach/internal/opc"
	"opcreach/internal/output"
	"opcreach/internal/probe"
	"opcreach/internal/tui"
	"opcreach/pkg/model"
)

var (
	version   string
	commit    string
	buildDate string
)

func SetVersionBuildCommitString(v, c, b string) {
	version, commit, buildDate = v, c, b
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.FromEnv()
	cfg := defaults
	var (
		plain    bool
		asJSON   bool
		pubMs    int
		windowMs int
		pollMs   int
	)

	root := &cobra.Command{
		Use:   "opcreach",
		Short: "Probe whether OPC UA callback traffic can reach this machine",
		Long: "opcreach connects to an OPC UA server, snapshots the local socket table\n" +
			"before and after creating a subscription, and then watches for inbound\n" +
			"connections from the server to tell whether callback traffic traverses\n" +
			"the network path.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.PublishingInterval = time.Duration(pubMs) * time.Millisecond
			cfg.WatchWindow = time.Duration(windowMs) * time.Millisecond
			cfg.PollInterval = time.Duration(pollMs) * time.Millisecond
			return run(cfg, plain, asJSON)
		},
	}

	if version != "" {
		root.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
	}

	root.Flags().StringVarP(&cfg.Server, "server", "s", defaults.Server, "server address, with optional scheme and inline port")
	root.Flags().IntVarP(&cfg.Port, "port", "p", defaults.Port, "server port, used when the address carries none")
	root.Flags().StringVarP(&cfg.NodeID, "node-id", "n", defaults.NodeID, "node to monitor")
	root.Flags().IntVar(&pubMs, "publishing-interval", int(defaults.PublishingInterval/time.Millisecond), "requested publishing interval in ms")
	root.Flags().IntVar(&windowMs, "watch-duration", int(defaults.WatchWindow/time.Millisecond), "callback observation window in ms")
	root.Flags().IntVar(&pollMs, "poll-interval", int(defaults.PollInterval/time.Millisecond), "socket table poll interval in ms")
	root.Flags().StringVar(&cfg.LogDir, "log-dir", defaults.LogDir, "directory for the per-run log file")
	root.Flags().BoolVar(&plain, "plain", false, "stream events as plain text instead of the TUI")
	root.Flags().BoolVar(&asJSON, "json", false, "print the final result as JSON (implies --plain)")

	return root
}

func run(cfg config.Probe, plain, asJSON bool) error {
	// Configuration errors surface before anything starts.
	if _, _, err := config.Normalize(cfg.Server, cfg.Port); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()
	book, err := logbook.NewFile(cfg.LogDir, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	client := opc.NewUAClient()
	defer client.Close() //nolint:errcheck

	session := probe.NewSession()
	session.Start(cfg, probe.Deps{
		RunID:   runID,
		Client:  client,
		Sockets: netstat.NewCommandSource(),
		Book:    book,
	})

	if plain || asJSON {
		return runPlain(session, asJSON)
	}
	return tui.Start(session, version)
}

func runPlain(session *probe.Session, asJSON bool) error {
	var final *model.ProbeResult
	var fatal string

	for ev := range session.Events() {
		switch ev := ev.(type) {
		case model.FinalResultEvent:
			res := ev.Result
			final = &res
		case model.ErrorEvent:
			fatal = ev.Message
		case model.FinishedEvent:
			if fatal != "" {
				return fmt.Errorf("%s", fatal)
			}
			if final != nil {
				if asJSON {
					s, err := output.ToJSON(*final)
					if err != nil {
						return err
					}
					fmt.Println(s)
				} else {
					output.RenderSummary(os.Stdout, *final)
				}
			}
			return nil
		default:
			if !asJSON {
				output.PrintEvent(os.Stdout, ev)
			}
		}
	}
	return nil
}
