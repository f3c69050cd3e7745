package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/schedsim/sched"
)

// A workloadEntry is one process in a workload file. Priority matters to the
// priority policy only; a zero arrival means "present from the start".
type workloadEntry struct {
	Name     string  `json:"name"`
	Burst    float64 `json:"burst"`
	Priority *int    `json:"priority,omitempty"`
	Arrival  float64 `json:"arrival,omitempty"`
}

// loadWorkload reads a JSON array of workload entries.
func loadWorkload(path string) ([]workloadEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read workload: %w", err)
	}

	var entries []workloadEntry
	err = json.Unmarshal(data, &entries)
	if err != nil {
		return nil, fmt.Errorf("cannot parse workload: %w", err)
	}

	return entries, nil
}

// admitWorkload adds every entry to the controller, preserving file order.
func admitWorkload(c *sched.Controller, entries []workloadEntry) error {
	for _, e := range entries {
		var opts []sched.ProcessOption
		if e.Priority != nil {
			opts = append(opts, sched.WithPriority(*e.Priority))
		}
		if e.Arrival > 0 {
			opts = append(opts, sched.ArriveAt(sched.VTime(e.Arrival)))
		}

		_, err := c.AddProcess(e.Name, sched.VTime(e.Burst), opts...)
		if err != nil {
			return fmt.Errorf("admitting %q: %w", e.Name, err)
		}
	}

	return nil
}
