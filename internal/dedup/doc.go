// Package dedup implements content-addressed, time-windowed duplicate
// suppression for event submissions.
//
// Fingerprints are SHA-256 hashes over a canonical serialization of the
// event type and payload, so key-order permutations of the same payload
// hash identically. State is in-process only; duplicates across a restart
// are not caught.
package dedup
