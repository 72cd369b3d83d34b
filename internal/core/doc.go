// Package core imports financial-year exchange files into an accountant's
// journals.
//
// The package holds the domain logic independent of any transport. Web
// handlers, the CLI and tests drive it through [Service].
//
// # Pipeline
//
// An [ExchangeImport] runs five stages inside a single [Store] transaction:
//
//  1. Parser: raw bytes to a [ParsedTable] keyed by normalized headers
//  2. Header check: the header set must equal the [ImportFormat] schema
//  3. Journal check: every journal code must exist
//  4. Date check: every row day must lie inside the financial year
//  5. Importer and finalizer: entries are written, then the file is attached
//
// The first failing stage aborts the run and the transaction rolls back, so a
// failed import leaves no trace. Stages 1 to 5 fail with an [InvalidFile]
// whose message comes from the localized catalog; the finalizer fails with
// [RecordInvalid].
//
// # Formats
//
// Two layouts are supported. [FormatStandard] uses day-first dates and looks
// journals up by code. [FormatIsacompta] uses DDMMYYYY dates, adds five
// columns, and also matches journals by their Isacompta code.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - EXC001-EXC005: rejected import files
//   - DB001-DB006: database errors
//   - FILE001-FILE002: file size and encoding
//   - IMP001-IMP004: exchange state and import scheduling
//   - REQ001, RATE001: request handling
package core
