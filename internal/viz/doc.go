// Package viz renders run results for the terminal: a styled diagnostics
// table, sample summaries and ASCII plots of sampled series.
package viz
