// Package timesync maintains the offset between the local clock and
// Steam's server clock. Code derivation stays possible even when
// resynchronization fails: the clock degrades to its cached offset, or to
// zero on a cold start, and logs a warning instead of failing the caller.
package timesync
