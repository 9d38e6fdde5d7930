// Package mcptools exposes dex's search, retrieval, and listing services as
// a stdio MCP server: the four fixed tools stats, list, search, and get.
package mcptools
