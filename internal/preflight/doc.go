// Package preflight provides readiness checks for the paths and services a
// grouping run depends on.
//
// The "shootsort doctor" command runs RunAll and renders the results; the
// run and watch commands may consult individual checks so a doomed run
// fails before any file is touched. Checks gated by a config toggle are
// skipped when the feature is disabled.
package preflight
