// Package metrics accumulates scalar summaries over the samples of a
// dynamic run.
package metrics

import "github.com/san-kum/indmach/internal/dynamo"

// Default returns a fresh set of the run metrics, with slip stability
// judged against maxSlip.
func Default(maxSlip float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewPeakSlip(),
		NewSlipStability(maxSlip),
		NewEnergy(),
		NewLosses(),
		NewMinVoltage(),
		NewMeanCurrent(),
	}
}
