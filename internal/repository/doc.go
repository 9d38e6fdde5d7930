// Package repository is the typed data-access layer over internal/store.
// Each file covers one normalized entity with bulk insert/upsert, lookup,
// and delete operations; sqlRepo (in conversation.go) holds the shared
// *sql.DB and transaction helpers the other repositories embed.
package repository
