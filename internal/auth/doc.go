// Package auth manages API keys: generation, bcrypt hashing, storage,
// and bearer-secret verification.
//
// Verification scans all stored keys and compares the presented secret
// against each bcrypt hash. That is linear in the number of keys and
// acceptable for small deployments; an indexed lookup would be needed at
// scale.
package auth
