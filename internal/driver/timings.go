package driver

import (
	"fmt"

	"monogen/internal/diag"
	"monogen/internal/observ"
	"monogen/internal/source"
)

// reportTimings adds an info diagnostic for a finished resolution, with one
// note per phase. Machine readers use Summary.Timing instead.
func reportTimings(bag *diag.Bag, program string, report observ.Report) {
	if bag == nil {
		return
	}
	name := program
	if name == "" {
		name = "<anonymous>"
	}
	notes := make([]diag.Note, 0, len(report.Phases))
	for _, p := range report.Phases {
		msg := fmt.Sprintf("%-12s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			msg += "  " + p.Note
		}
		notes = append(notes, diag.Note{Span: source.NoSpan, Msg: msg})
	}
	bag.Add(diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  fmt.Sprintf("resolved %s in %.2f ms", name, report.TotalMS),
		Primary:  source.NoSpan,
		Notes:    notes,
	})
}
