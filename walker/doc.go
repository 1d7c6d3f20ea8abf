// Package walker traverses directory trees for archiving.
//
// The walk is depth-first with sorted directory entries, so the order
// of emitted entries is deterministic for a given tree and
// configuration. Symlink handling, broken-link policy, special-file
// inclusion, hidden-file skipping, permission-error policy, and ignore
// patterns are all configured per walker; a set of canonical paths
// already entered breaks symlink cycles in follow mode.
package walker
