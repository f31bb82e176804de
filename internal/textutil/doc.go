// Package textutil provides the text primitives shared by catalog indexing and
// matching: slug folding, word splitting, and edit-distance similarity.
//
// Slugs are the common currency of the resolver. Catalog slugs, link path
// segments, image filenames, captions and headings are all folded into the
// same lowercase ASCII, hyphen-separated form before any comparison, so the
// strategies in internal/match only ever compare like with like.
package textutil
