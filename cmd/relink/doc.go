// Package main hosts the relink CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the scan, review and
// apply pipelines plus the status, search and maintenance utilities around
// them. It centralizes configuration resolution, logger construction, and
// opening the content store and decision ledger so subcommands only describe
// their own flow.
//
// Keep this package lean: add behaviour to the internal packages first and
// surface it here through a command or flag.
package main
