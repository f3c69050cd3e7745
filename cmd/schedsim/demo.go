package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/simulation"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a guided scheduling demonstration.",
}

var demoRoundRobinCmd = &cobra.Command{
	Use:   "roundrobin",
	Short: "Share the CPU in quantum-sized turns over a fixed workload.",
	Run: func(cmd *cobra.Command, _ []string) {
		quantum, _ := cmd.Flags().GetFloat64("quantum")

		s := buildDemoSession(cmd, sched.PolicyRoundRobin,
			sched.VTime(quantum))
		c := s.Controller()

		fmt.Println(heading("Round-Robin demo, quantum " +
			fmt.Sprintf("%.1f", quantum)))

		mustAdd(c, "Editor", 5)
		mustAdd(c, "Compiler", 3)
		mustAdd(c, "Browser", 4)

		runAndReport(cmd, s)
	},
}

var demoPriorityCmd = &cobra.Command{
	Use:   "priority",
	Short: "Run the most urgent process first, preempting on arrival.",
	Run: func(cmd *cobra.Command, _ []string) {
		s := buildDemoSession(cmd, sched.PolicyPriority, 0)
		c := s.Controller()

		fmt.Println(heading("Preemptive-priority demo"))
		fmt.Println("An urgent process arrives at t=1 " +
			"and preempts the batch job.")

		mustAdd(c, "BatchJob", 3, sched.WithPriority(10))
		mustAdd(c, "Interrupt", 1, sched.WithPriority(1), sched.ArriveAt(1))
		mustAdd(c, "Logger", 2, sched.WithPriority(5), sched.ArriveAt(1))

		runAndReport(cmd, s)
	},
}

func buildDemoSession(
	cmd *cobra.Command,
	kind sched.PolicyKind,
	quantum sched.VTime,
) *simulation.Simulation {
	monitorOn, _ := cmd.Flags().GetBool("monitor")
	port, _ := cmd.Flags().GetInt("port")
	open, _ := cmd.Flags().GetBool("open")

	b := simulation.MakeBuilder().
		WithPolicy(kind).
		WithoutRecording()
	if kind == sched.PolicyRoundRobin {
		b = b.WithQuantum(quantum)
	}
	if monitorOn {
		if port > 0 {
			b = b.WithMonitorPort(port)
		}
	} else {
		b = b.WithoutMonitoring()
	}

	s := b.Build()

	c := s.Controller()
	c.AcceptHook(sched.NewEventLogger(log.New(os.Stdout, "", 0)))

	pace, _ := cmd.Flags().GetDuration("pace")
	if pace > 0 {
		c.AcceptHook(&paceHook{perUnit: pace})
	}

	if monitorOn && open {
		s.Monitor().OpenBrowser()
	}

	return s
}

func mustAdd(
	c *sched.Controller,
	name string,
	burst sched.VTime,
	opts ...sched.ProcessOption,
) {
	_, err := c.AddProcess(name, burst, opts...)
	dieOnErr(err)
}

func runAndReport(cmd *cobra.Command, s *simulation.Simulation) {
	c := s.Controller()

	dieOnErr(c.Run())

	fmt.Println()
	fmt.Println(heading("Metrics"))
	fmt.Print(c.MetricsReport().String())
	fmt.Printf("CPU busy %.2f of %.2f time units (utilization %.0f%%)\n",
		float64(s.BusyTime().BusyTime()), float64(c.CurrentTime()),
		s.BusyTime().Utilization()*100)

	monitorOn, _ := cmd.Flags().GetBool("monitor")
	if monitorOn {
		fmt.Fprintln(os.Stderr,
			"Run finished; monitor still serving. Ctrl-C to quit.")
		select {}
	}

	s.Terminate()
}

func addDemoFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("pace", 0,
		"sleep this long per executed time unit, for watchable runs")
	cmd.Flags().Bool("monitor", false, "serve the HTTP monitor")
	cmd.Flags().Int("port", 0, "monitor port (random when 0)")
	cmd.Flags().Bool("open", false, "open the monitor page in a browser")
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(demoRoundRobinCmd)
	demoCmd.AddCommand(demoPriorityCmd)

	demoRoundRobinCmd.Flags().Float64("quantum", 2,
		"time units a process may hold the CPU per turn")
	addDemoFlags(demoRoundRobinCmd)
	addDemoFlags(demoPriorityCmd)
}
