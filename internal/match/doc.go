// package match implements approximate string matching for track resolution.
//
// Catalog titles rarely line up exactly with free-text descriptions: the
// catalog name carries suffixes ("- Remastered 2011"), the query is a
// truncated fragment, or accents and punctuation differ. Matching runs in
// three stages over normalized strings, short-circuiting on the first hit:
//
//  1. Exact equality after normalization
//  2. Containment (either string is a substring of the other)
//  3. Levenshtein similarity ratio against a threshold
//
// All functions are pure and safe for concurrent use.
package match
