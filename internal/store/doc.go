// Package store persists extraction results.
//
// DB records every extraction run and its association records in a SQLite
// file (modernc.org/sqlite, no cgo) so a batch can be audited or replayed
// later. UpdateWorkbook writes resolved months back into the spreadsheet the
// forms were filed from: the row whose lookup column holds "<note> <item>"
// receives the canonical month in the output column.
package store
