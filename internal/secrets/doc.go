// Package secrets detects and redacts API keys, tokens, and other
// credentials that show up inside indexed conversations — a pasted
// .env value, an exported AWS key, a database URL with inline
// credentials — before that content is written to the store.
//
// Detection is regex- and keyword-based, with an allow list for
// known-safe false positives. Findings record the rule that matched,
// its severity, and a position, but never the matched text itself.
package secrets
