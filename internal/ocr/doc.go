// Package ocr is the boundary to the optical character recognition engine.
//
// The engine is a black box behind the Engine interface: it receives a bitmap,
// a language hint, a recognition mode and an optional character whitelist, and
// returns recognized words with bounding boxes and confidence (0-100).
// TesseractEngine implements it with Tesseract via gosseract/v2.
//
// # Prerequisites
//
// Tesseract and its language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-jpn
//   - macOS: brew install tesseract tesseract-lang
//
// Set TESSDATA_PREFIX, or use WithTessdataPrefix, when the traineddata files
// live outside Tesseract's default directory.
//
// # Attempts
//
// Handwriting is recognized by trying several preprocessed variants of the
// same crop in several modes. Adapter.Attempts runs every combination and
// records each outcome as an Attempt, so failures are visible to the caller
// instead of being swallowed. Best picks the most confident attempt that
// also passes a caller-supplied check, usually "parses as a month".
//
// # Tokens
//
// TokenLocator runs one block-mode pass over the page (or its left column)
// and returns the words above a confidence floor as Tokens in page
// coordinates. Identifier matching happens elsewhere.
package ocr
