// Package workload builds reactive graphs for the CLI to run.
//
// Every workload gets a fresh Runtime, drives it through a fixed sequence of
// writes and reads, and checks the values and recomputation counts it
// expects. A mismatch is reported as an E203 error; an engine invariant
// panic is recovered and reported as E202.
package workload
