// Package runtime wires storage, configuration, and domain stores into
// a single-node instance shared by the server and the CLI.
package runtime
