// Package detection finds hand-drawn colored marks on form pages.
//
// A mark is a circle drawn around a month or a cross drawn next to a row, in a
// configurable ink color (red by default). Detection runs in four steps:
//
//  1. Color mask: pixels inside the configured HSV ranges, cleaned with an
//     opening and a closing (see the imaging package).
//  2. External contours: the outer boundary of each 8-connected blob, traced
//     with Moore neighborhood following. Blobs inside another blob's hole are
//     ignored, so a month scribbled inside a circle does not become a mark.
//  3. Shape classification: area, perimeter, circularity and bounding box
//     aspect ratio decide between Circle, Cross and Unknown.
//  4. Table proximity: a padded window around each mark must contain ruled
//     lines (Canny edges plus a Hough segment search), otherwise the mark is
//     treated as noise.
//
// # Measurements
//
// Contour area and perimeter are measured on the polygon through boundary
// pixel centers. A filled disc of radius r therefore has an area slightly
// below pi*r^2, and a thin ring is measured by its outer boundary, the same as
// a disc. Thresholds in the configuration are expressed in these units.
//
// # Coordinates
//
// All boxes and points are page pixels with the origin at the top-left.
package detection
