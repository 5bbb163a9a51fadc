// Package keyscmd implements the API key management commands. They
// operate directly on the key store, so they should run while the
// server is stopped or against a separate data directory.
package keyscmd
