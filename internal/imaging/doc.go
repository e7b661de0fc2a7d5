// Package imaging provides the pixel-level operations of the mark extractor.
//
// It turns rendered form pages into the inputs the detectors and the OCR layer
// need: binary color masks, padded crops around marks, edge maps, and
// normalized handwriting bitmaps. Every function is pure: inputs are never
// modified and results are fresh images anchored at (0,0).
//
// # Coordinate System
//
// Pixel coordinates are 0-based with the origin at the top-left corner, X
// increasing rightward and Y downward. Rectangles follow image.Rectangle
// semantics: Min is inclusive, Max exclusive. Functions that crop return both
// the cropped image and the clipped rectangle in source coordinates so that
// positions found inside a crop can be mapped back onto the page.
//
// # Color Masks
//
// Target colors are configured as HSV ranges in the 8-bit convention used by
// most scanning tools: hue in half degrees (0-180), saturation and value in
// 0-255. Red ink needs two ranges because its hue wraps around 0. ColorMask ORs
// the ranges; CleanMask then applies an opening to drop isolated speckle and a
// closing to reconnect pen strokes broken by the scanner.
//
// # Handwriting Variants
//
// Preprocessor produces several renditions of a month crop (inverted, Otsu,
// fixed thresholds, contrast boosted, denoised, sharpened), each upscaled. OCR
// is run on all of them and the caller keeps the most confident parse.
//
// # Thread Safety
//
// PageCache is safe for concurrent use. Pages are never mutated after loading,
// so any number of goroutines may read the same page.
package imaging
