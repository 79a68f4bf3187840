// Package trace rebuilds the program call tree of a Solana transaction from
// the log lines the runtime emitted while executing it.
//
// Classify maps single lines to entries, Build folds the classified stream
// into call trees using the invoke depth markers, and Aggregate walks the
// trees to find the call that failed the transaction. The package does no
// I/O and keeps no shared state; all functions are safe for concurrent use.
package trace
