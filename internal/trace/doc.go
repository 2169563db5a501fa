// Package trace holds the draws of an inference run and the stores they are
// written to.
//
// A Trace is appended to while a sampler runs and sealed when it ends. Each
// Draw maps the name of a free or deterministic variable to its values in
// the natural (constrained) space.
//
// # Stores
//
// Stores are selected by name at call time with Open:
//
//   - memory: slice-backed, readable after Close
//   - sqlite (alias file): one SQLite database file per run
//   - badger: one badger key-value directory per run
//
// Close seals a store. Reopening a sealed file-backed store yields the same
// header and draws, bit for bit, and refuses further appends with ErrClosed.
//
// # Digests
//
// Digest content-addresses the variables and draw values with SHA-256 under
// the DomainTrace prefix. Two runs with the same seed and configuration have
// equal digests.
package trace
