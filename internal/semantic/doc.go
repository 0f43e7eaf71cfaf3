// Package semantic parses semantic model YAML (metrics, relationships,
// filters, custom instructions, verified queries and semantic views) into
// records.
package semantic
