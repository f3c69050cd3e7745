package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/simulation"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run a workload under both policies and print both reports.",
	Run: func(cmd *cobra.Command, _ []string) {
		path, _ := cmd.Flags().GetString("workload")
		entries, err := loadWorkload(path)
		dieOnErr(err)

		quantum, _ := cmd.Flags().GetFloat64("quantum")

		runPolicy := func(kind sched.PolicyKind, title string) {
			b := simulation.MakeBuilder().
				WithPolicy(kind).
				WithoutMonitoring().
				WithoutRecording()
			if kind == sched.PolicyRoundRobin {
				b = b.WithQuantum(sched.VTime(quantum))
			}

			s := b.Build()
			c := s.Controller()

			dieOnErr(admitWorkload(c, entries))
			dieOnErr(c.Run())

			fmt.Println(heading(title))
			fmt.Print(c.MetricsReport().String())
			fmt.Printf("CPU utilization %.0f%%\n\n",
				s.BusyTime().Utilization()*100)

			s.Terminate()
		}

		runPolicy(sched.PolicyRoundRobin,
			fmt.Sprintf("Round-Robin, quantum %.1f", quantum))
		runPolicy(sched.PolicyPriority, "Preemptive priority")
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().String("workload", "",
		"JSON workload file to execute")
	compareCmd.Flags().Float64("quantum", 2,
		"Round-Robin quantum in time units")

	_ = compareCmd.MarkFlagRequired("workload")
}
