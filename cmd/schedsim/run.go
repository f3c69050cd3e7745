package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/schedsim/analysis"
	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a workload file to completion and print the metrics.",
	Run: func(cmd *cobra.Command, _ []string) {
		path, _ := cmd.Flags().GetString("workload")
		entries, err := loadWorkload(path)
		dieOnErr(err)

		name, _ := cmd.Flags().GetString("policy")
		kind, ok := sched.ParsePolicyKind(name)
		if !ok {
			dieOnErr(fmt.Errorf(
				"unknown policy %q, want rr or priority", name))
		}

		b := simulation.MakeBuilder().WithPolicy(kind)
		if kind == sched.PolicyRoundRobin {
			quantum, _ := cmd.Flags().GetFloat64("quantum")
			b = b.WithQuantum(sched.VTime(quantum))
		}

		record, _ := cmd.Flags().GetString("record")
		if record == "" {
			b = b.WithoutRecording()
		} else {
			b = b.WithOutputFileName(record)
		}

		monitorOn, _ := cmd.Flags().GetBool("monitor")
		if monitorOn {
			port, _ := cmd.Flags().GetInt("port")
			if port > 0 {
				b = b.WithMonitorPort(port)
			}
		} else {
			b = b.WithoutMonitoring()
		}

		s := b.Build()
		c := s.Controller()

		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			c.AcceptHook(sched.NewEventLogger(
				log.New(os.Stdout, "", 0)))
		}
		pace, _ := cmd.Flags().GetDuration("pace")
		if pace > 0 {
			c.AcceptHook(&paceHook{perUnit: pace})
		}

		depthFile, _ := cmd.Flags().GetString("queue-depth")
		if depthFile != "" {
			period, _ := cmd.Flags().GetFloat64("queue-depth-period")
			if period <= 0 {
				dieOnErr(fmt.Errorf(
					"queue-depth-period must be positive, got %g", period))
			}
			analysis.MakeQueueAnalyzerBuilder().
				WithPerfLogger(analysis.NewCSVBackend(depthFile)).
				WithController(c).
				WithPeriod(sched.VTime(period)).
				Build()
		}

		open, _ := cmd.Flags().GetBool("open")
		if monitorOn && open {
			s.Monitor().OpenBrowser()
		}

		dieOnErr(admitWorkload(c, entries))
		dieOnErr(c.Run())

		fmt.Println(heading("Metrics"))
		fmt.Print(c.MetricsReport().String())

		if monitorOn {
			fmt.Fprintln(os.Stderr,
				"Run finished; monitor still serving. Ctrl-C to quit.")
			select {}
		}

		s.Terminate()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("workload", "",
		"JSON workload file to execute")
	runCmd.Flags().String("policy", "rr",
		"scheduling policy, rr or priority")
	runCmd.Flags().Float64("quantum", 2,
		"time units a process may hold the CPU per turn (rr only)")
	runCmd.Flags().String("record", "",
		"record the timeline into this SQLite file")
	runCmd.Flags().Bool("verbose", false,
		"log every scheduling event to stdout")
	runCmd.Flags().Duration("pace", 0,
		"sleep this long per executed time unit")
	runCmd.Flags().String("queue-depth", "",
		"log ready-queue depth per period into this CSV file")
	runCmd.Flags().Float64("queue-depth-period", 1,
		"ready-queue sampling period in time units")
	runCmd.Flags().Bool("monitor", false, "serve the HTTP monitor")
	runCmd.Flags().Int("port", 0, "monitor port (random when 0)")
	runCmd.Flags().Bool("open", false,
		"open the monitor page in a browser")

	_ = runCmd.MarkFlagRequired("workload")
}
