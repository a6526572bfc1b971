package parser

import (
	"github.com/gabriel-vasile/mimetype"
)

// Media types recognized as tabular statement input.
const (
	MediaCSV   = "text/csv"
	MediaText  = "text/plain"
	MediaExcel = "application/vnd.ms-excel"
	MediaXLSX  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// sniffLen is how many leading bytes the 7-bit text heuristic inspects.
const sniffLen = 100

var knownTypes = []string{MediaXLSX, MediaExcel, MediaCSV, MediaText}

// DetectMediaType sniffs data and returns the closest recognized media type,
// or the detected type as-is when none of them applies.
func DetectMediaType(data []byte) string {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, known := range knownTypes {
			if m.Is(known) {
				return known
			}
		}
	}
	return detected.String()
}

// IsSupported reports whether f looks like statement input: either its
// declared media type is one of the recognized tabular types, or its first
// bytes are all 7-bit clean.
func IsSupported(f File) bool {
	for _, known := range knownTypes {
		if f.MediaType == known {
			return true
		}
	}

	head := f.Data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	for _, b := range head {
		if b > 127 {
			return false
		}
	}
	return true
}

func isSpreadsheetType(mediaType string) bool {
	return mediaType == MediaExcel || mediaType == MediaXLSX
}

// detectedAs reports whether data sniffs as any of mimes or one of their
// subtypes.
func detectedAs(data []byte, mimes ...string) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for _, want := range mimes {
			if m.Is(want) {
				return true
			}
		}
	}
	return false
}
