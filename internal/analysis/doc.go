// Package analysis computes per-assignment rankings, statistics, grade
// distributions and chart-ready tables from a parsed roster.
package analysis
