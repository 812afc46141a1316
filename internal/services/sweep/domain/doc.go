// Package domain holds the sweep's configuration, records, counters and the ports the
// service drives: a Scanner for the full namespace scan, a Deleter for per-record mutations,
// and the optional ledger, audit and progress sinks.
package domain
