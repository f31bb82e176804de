// Package shortcode defines the lexical grammar the resolver understands:
// directive tokens such as [product id="500"] and companion product links
// such as href="/product/red-vibe/".
//
// A Grammar is compiled once from configuration and shared read-only. It can
// find tokens in a body, build the canonical token for a new target, and
// perform the literal, boundary-aware rewrites the apply pass needs.
package shortcode
