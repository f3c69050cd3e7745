// Schedsim is a teaching CPU-scheduling simulator. It replays workloads
// under Round-Robin or preemptive-priority scheduling on a virtual clock and
// reports the classic per-process and average metrics.
package main

func main() {
	Execute()
}
