// Package preflight runs the environment checks behind `relink doctor` and
// guards mutating commands: ledger directory permissions, ledger lock
// availability, and content database schema plus catalog presence.
package preflight
