// Package internaldefs holds the metric names, help strings and histogram
// bounds shared by the exporters, so every backend publishes the same
// series. It performs no I/O.
package internaldefs
