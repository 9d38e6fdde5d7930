// Package search implements dex's hybrid query service: it parses the
// source:/model:/file: query language, fans a free-text query out to full
// text and vector search, fuses the two rankings with Reciprocal Rank
// Fusion, and groups the surviving message matches by conversation.
package search
