// Package aerospike adapts the aerospike client to the sweep and cleansets ports
//
// Design choices:
// - The scan callback of the client is a channel; Reader turns it into a pull iterator
//   that many workers can share.
// - Expirations come back as remaining TTL; they are converted once, at read time, into
//   store-native seconds so the policy compares like with like.
// - Every client call sits behind a small interface so tests never need a cluster.
package aerospike
