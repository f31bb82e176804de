// Package review implements the decision gate between scan and apply.
//
// A Workflow walks the pending ledger records, best top suggestion first.
// Records whose top suggestion clears the auto-approve threshold are approved
// without asking; the rest are handed to a Prompter, which returns an Action
// (pick a suggestion, enter a target, search, reject, mark discontinued, defer,
// or quit). Every decision is propagated through the ledger's pattern memory
// and persisted before the next record is shown, so an interrupted session
// loses at most the decision in flight.
//
// The Workflow knows nothing about terminals. TerminalPrompter is the
// interactive implementation used by the CLI; tests drive the Workflow with a
// scripted Prompter.
package review
