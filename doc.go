// Package fsmgen holds the shared error codes and logging contract used by
// the state machine runtime (fsm), the graph model (graph), the graph repair
// engine (repair), the Go code synthesis engine (synth) and the tick driver
// (driver).
package fsmgen
