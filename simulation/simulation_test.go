package simulation_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/schedsim/recording"
	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/simulation"
)

var _ = Describe("Simulation", func() {
	It("should run a bare session without observers", func() {
		s := simulation.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			WithoutMonitoring().
			WithoutRecording().
			Build()

		c := s.Controller()
		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		Expect(s.Recorder()).To(BeNil())
		Expect(s.Monitor()).To(BeNil())
		Expect(s.BusyTime().BusyTime()).To(BeNumerically("==", 8))

		s.Terminate()
	})

	It("should record slices and the final summary", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "session")

		s := simulation.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			WithoutMonitoring().
			WithOutputFileName(dbPath).
			Build()

		c := s.Controller()
		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		s.Terminate()

		r := recording.NewReader(dbPath + ".sqlite3")
		defer r.Close()

		type sliceRow struct {
			ID        string
			ProcID    int
			ProcName  string
			Kind      string
			Location  string
			StartTime float64
			EndTime   float64
			Completed bool
		}
		r.MapTable("slices", sliceRow{})

		rows, total, err := r.Query(context.Background(), "slices",
			recording.QueryParams{OrderBy: "StartTime ASC"})
		Expect(err).To(BeNil())
		Expect(total).To(Equal(5))

		first := rows[0].(*sliceRow)
		Expect(first.ProcName).To(Equal("A"))
		Expect(first.StartTime).To(BeNumerically("==", 0))
		Expect(first.EndTime).To(BeNumerically("==", 2))

		type summaryRow struct {
			ProcID     int
			ProcName   string
			Priority   int
			Arrival    float64
			Burst      float64
			Completion float64
			Waiting    float64
			Turnaround float64
			Response   float64
		}
		r.MapTable("summary", summaryRow{})

		_, count, err := r.Query(context.Background(), "summary",
			recording.QueryParams{})
		Expect(err).To(BeNil())
		Expect(count).To(Equal(2))
	})

	It("should build a priority session", func() {
		s := simulation.MakeBuilder().
			WithPolicy(sched.PolicyPriority).
			WithoutMonitoring().
			WithoutRecording().
			Build()

		c := s.Controller()
		c.AddProcess("Low", 3, sched.WithPriority(10))
		c.AddProcess("High", 1, sched.WithPriority(1), sched.ArriveAt(1))
		Expect(c.Run()).To(BeNil())

		high, _ := c.Process(2)
		Expect(high.CompletionTime).To(BeNumerically("==", 2))
	})

	It("should panic when a monitor port is set without monitoring", func() {
		Expect(func() {
			simulation.MakeBuilder().
				WithoutMonitoring().
				WithMonitorPort(8080).
				Build()
		}).To(Panic())
	})
})
