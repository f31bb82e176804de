// Package signals derives weak context clues around a directive token: the
// nearest catalog link, image alt text and filename, caption, heading, and
// anchor text.
//
// Extraction is a pure function of (body, offset). Only a bounded window of
// markup before the token (and a small one after it) is inspected, and for
// each signal type only the occurrence closest to the token is kept.
package signals
