// Package ocr defines the contract between the redaction pipeline and an OCR
// engine. An engine receives one encoded page raster and returns both a flat
// transcript and the recognized words with their pixel boxes, in the engine's
// natural reading order. Implementations live in subpackages (see tesseract)
// so callers and tests can depend on the contract without linking a native
// OCR library.
package ocr
