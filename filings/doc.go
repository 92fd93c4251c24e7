// Package filings is the relational side of the system: company master data,
// SEC filing metadata, calculated financial ratios, and credit assessment
// history, stored in SQLite. The vector layer treats the values here
// (tickers, sections, fiscal years) as opaque filter keys and never writes
// through this package; it exists so ingest and analysis tooling can resolve
// which filings belong to which company and track what has been processed.
package filings
