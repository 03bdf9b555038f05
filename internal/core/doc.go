// Package core holds the domain logic of the project-status dashboard:
// turning a shared spreadsheet reference into a normalized dataset and
// slicing that dataset by semantic column roles.
//
// The package performs no I/O and can be used by the web server, the CLI or
// tests without modification.
//
// # Pipeline
//
//  1. [ResolveReference] parses user input into a [SheetReference].
//  2. A retrieval strategy produces a [Dataset], decoding either the wrapped
//     tabular-JSON format with [DecodeTabularPayload] or CSV with [ParseCSV].
//  3. [ResolveColumns] matches headers against [RoleAliases] to build a
//     [ColumnRoleIndex].
//  4. [ApplyFilters] narrows the rows by [FilterCriteria] and derives KPIs.
//
// # Error Handling
//
// Load failures are typed ([ReferenceParseError], [CompositeRetrievalError])
// or sentinel ([ErrEmptyDataset]); [MapError] turns any of them into a
// [UserMessage] with a support code.
package core
