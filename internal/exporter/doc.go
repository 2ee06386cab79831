// Package exporter writes the precomputed artifacts for a published snapshot:
// percentiles.json with per-cohort curves, metadata.json with the filter
// vocabulary, and summary.xlsx with per-sex weight class statistics.
//
// Every artifact is written to a temp file in the output directory and
// renamed into place, so readers never observe a partially written file.
package exporter
