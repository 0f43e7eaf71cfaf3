// Package core defines the normalized records shared across sst.
//
// Records are produced once per source YAML entity by the extractors and
// semantic parsers and are treated as values afterwards: later stages such as
// template resolution build new records instead of mutating existing ones.
//
// Identifier fields (table names, metric names, relationship names) are
// upper-cased at extraction time to follow Snowflake's identifier convention,
// and every record carries the path of the file it came from so validation
// issues can be attributed.
package core
