// Package audit delivers built audit entries to sinks.
//
// The [Dispatcher] is a single FIFO queue drained by one goroutine, so
// entries reach the sink in the order they were emitted. The engine emits
// an account's entries while holding that account's lock, which keeps each
// account's trail in admission order.
package audit
