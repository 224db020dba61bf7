// Package main hosts the shootsort CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// grouping runs, watch loops, history queries, preflight checks, and
// configuration scaffolding. It centralizes configuration resolution,
// signal handling, and progress rendering so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags
// here. That separation keeps the CLI declarative while the grouping
// logic lives in reusable components.
package main
