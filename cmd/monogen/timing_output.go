package main

import (
	"fmt"
	"io"
	"time"

	"monogen/internal/buildpipeline"
)

// printStageTimings writes one line per recorded stage, then the total.
func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	if len(timings) == 0 {
		return
	}
	for _, stage := range buildpipeline.Stages {
		if timings.Has(stage) {
			fmt.Fprintf(out, "%-8s %8.1f ms\n", stage, millis(timings.Duration(stage)))
		}
	}
	fmt.Fprintf(out, "%-8s %8.1f ms\n", "total", millis(timings.Total()))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
