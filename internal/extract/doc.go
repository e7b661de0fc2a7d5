// Package extract associates detected marks with the identifiers printed
// beside them and the month written inside them.
//
// For each page the Pipeline detects marks, runs one OCR pass for tokens,
// and then handles every mark independently:
//
//   - a circle takes the note and item identifiers to its left
//     (SpatialAssociator) and the month recognized inside it (MonthReader),
//     producing a "single" record
//   - a cross takes the identifiers to its left and borrows the month of the
//     nearest circle to its right on the same row (CrossRangeResolver),
//     producing a "range" record
//
// A mark with no identifier nearby produces no record. Unresolved fields are
// explicit (Field.Resolved is false, null when encoded) and a failure while
// reading one mark never affects another. Pages are independent and are
// processed by a worker pool; results keep page order.
package extract
