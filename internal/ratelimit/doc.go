// Package ratelimit enforces per-key request quotas using a fixed
// 60-second window.
//
// Fixed-window counting keeps memory and time O(1) per key. The known
// trade-off is a possible burst of up to twice the limit across a window
// edge; state is in-process and resets on restart.
package ratelimit
