// Package extract turns dbt model YAML into table and column records.
//
// SST annotations live under config.meta.sst (dbt Fusion) or the legacy
// meta.sst location. Legacy usage is reported once per node through a
// DeprecationTracker owned by the caller.
package extract
