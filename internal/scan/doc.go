// Package scan discovers directive tokens across the content corpus and merges
// them into the decision ledger.
//
// Extraction and ranking are pure and run on a bounded errgroup worker pool
// over content items; every ledger mutation happens afterwards on the calling
// goroutine in content-id order. New occurrences are resolved against the
// ledger's pattern memory before they are left pending, and discontinued
// legacy ids are rejected without consulting the match engine.
package scan
