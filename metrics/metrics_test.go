package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/schedsim/metrics"
)

var _ = Describe("ForProcess", func() {
	It("should derive turnaround, waiting, and response", func() {
		m := metrics.ForProcess(metrics.ProcessRecord{
			ID:         1,
			Name:       "A",
			Arrival:    2,
			Burst:      5,
			Start:      4,
			Completion: 12,
		})

		Expect(m.Turnaround).To(BeNumerically("==", 10))
		Expect(m.Waiting).To(BeNumerically("==", 5))
		Expect(m.Response).To(BeNumerically("==", 2))
	})

	It("should report zero waiting for an uncontended process", func() {
		m := metrics.ForProcess(metrics.ProcessRecord{
			Arrival:    3,
			Burst:      4,
			Start:      3,
			Completion: 7,
		})

		Expect(m.Waiting).To(BeNumerically("==", 0))
		Expect(m.Response).To(BeNumerically("==", 0))
		Expect(m.Turnaround).To(BeNumerically("==", m.Burst))
	})
})

var _ = Describe("Aggregator", func() {
	var agg *metrics.Aggregator

	BeforeEach(func() {
		agg = metrics.NewAggregator()
	})

	It("should report no data when nothing completed", func() {
		report := agg.Report()

		Expect(report.HasData()).To(BeFalse())
		Expect(report.Completed).To(Equal(0))
		Expect(report.String()).To(ContainSubstring("No completed processes"))
	})

	It("should average over all observed completions", func() {
		agg.Observe(metrics.ProcessRecord{
			ID: 1, Name: "A",
			Arrival: 0, Burst: 5, Start: 0, Completion: 8,
		})
		agg.Observe(metrics.ProcessRecord{
			ID: 2, Name: "B",
			Arrival: 0, Burst: 3, Start: 2, Completion: 7,
		})

		report := agg.Report()

		Expect(report.Completed).To(Equal(2))
		Expect(report.AvgTurnaround).To(BeNumerically("==", 7.5))
		Expect(report.AvgWaiting).To(BeNumerically("==", 3.5))
		Expect(report.AvgResponse).To(BeNumerically("==", 1))
	})

	It("should keep the observation order in the report", func() {
		agg.Observe(metrics.ProcessRecord{ID: 3, Completion: 1, Burst: 1})
		agg.Observe(metrics.ProcessRecord{ID: 1, Completion: 2, Burst: 2})

		report := agg.Report()

		Expect(report.PerProcess[0].ID).To(Equal(3))
		Expect(report.PerProcess[1].ID).To(Equal(1))
	})

	It("should produce identical reports for identical inputs", func() {
		agg.Observe(metrics.ProcessRecord{ID: 1, Arrival: 0, Burst: 2, Completion: 2})

		first := agg.Report()
		second := agg.Report()

		Expect(second).To(Equal(first))
	})

	It("should replace a re-observed process instead of double counting", func() {
		agg.Observe(metrics.ProcessRecord{ID: 1, Arrival: 0, Burst: 2, Completion: 2})
		agg.Observe(metrics.ProcessRecord{ID: 1, Arrival: 0, Burst: 2, Completion: 2})

		report := agg.Report()

		Expect(report.Completed).To(Equal(1))
	})

	It("should forget everything on reset", func() {
		agg.Observe(metrics.ProcessRecord{ID: 1, Completion: 1, Burst: 1})
		agg.Reset()

		Expect(agg.Report().HasData()).To(BeFalse())
	})
})
