// Package types defines the tabular data model, the run configuration, and
// the standard errors shared by the bullpen reconciliation engine.
//
// A Table is an ordered sequence of Rows with an explicit Schema. Rows hold
// Values tagged with a Kind (text, number, date, missing). A MergeKey names
// the columns that identify the same logical record across a source table
// and a destination table.
package types
