// Package clean implements the content cleaning cascade that turns raw
// article HTML into publication-ready paragraphs. Every function here is
// pure: no network, no disk, no database.
package clean

import (
	"encoding/json"
	"io"
)

// Thresholds configures the length gates and paragraph-level cutoffs
// applied by Clean. Values match the defaults named in the design.
type Thresholds struct {
	ParagraphMinLength int

	CleanedCharsMinGlobal int
	CleanedCharsMaxGlobal int

	SportStrictMinChars  int
	SportRelaxedMinChars int
}

// DefaultThresholds returns the documented default gate values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ParagraphMinLength:    30,
		CleanedCharsMinGlobal: 2300,
		CleanedCharsMaxGlobal: 4500,
		SportStrictMinChars:   1500,
		SportRelaxedMinChars:  1200,
	}
}

// thresholdsFile mirrors the documented JSON shape for an operator-edited
// thresholds file: keys named exactly as in the cleaner and image stage
// responsibility descriptions, independent of this package's Go field
// names. CollectPreviewMinImageBytes, BatchMinImageBytes, and
// QuickMinImageBytes are accepted here for the file format's sake but
// belong to the crawler's min-image-bytes gate, not to Thresholds itself;
// LoadThresholds returns them alongside Thresholds so a single file
// can configure both.
type thresholdsFile struct {
	ParagraphMinLength          int `json:"paragraph_min_length"`
	CleanedCharsMinGlobal       int `json:"cleaned_chars_min_global"`
	CleanedCharsMaxGlobal       int `json:"cleaned_chars_max_global"`
	SportStrictMinChars         int `json:"sport_strict_min_chars"`
	SportRelaxedMinChars        int `json:"sport_relaxed_min_chars"`
	CollectPreviewMinImageBytes int `json:"collect_preview_min_image_bytes"`
	BatchMinImageBytes          int `json:"batch_min_image_bytes"`
	QuickMinImageBytes          int `json:"quick_min_image_bytes"`
}

// ImageByteGates carries the three mode-keyed min-image-bytes values a
// thresholds file may also specify, for the crawler to apply.
type ImageByteGates struct {
	Quick      int
	Batch      int
	Collection int
}

// LoadThresholds parses a thresholds JSON document, returning the cleaner
// gates and the crawler's image-byte gates together since both live in
// the same operator-edited file per the documented config format.
// Fields absent from the document keep DefaultThresholds' values.
func LoadThresholds(r io.Reader) (Thresholds, ImageByteGates, error) {
	defaults := DefaultThresholds()
	gates := ImageByteGates{Quick: 2 * 1024, Batch: 70 * 1024, Collection: 100 * 1024}

	var raw thresholdsFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Thresholds{}, ImageByteGates{}, err
	}

	t := defaults
	if raw.ParagraphMinLength != 0 {
		t.ParagraphMinLength = raw.ParagraphMinLength
	}
	if raw.CleanedCharsMinGlobal != 0 {
		t.CleanedCharsMinGlobal = raw.CleanedCharsMinGlobal
	}
	if raw.CleanedCharsMaxGlobal != 0 {
		t.CleanedCharsMaxGlobal = raw.CleanedCharsMaxGlobal
	}
	if raw.SportStrictMinChars != 0 {
		t.SportStrictMinChars = raw.SportStrictMinChars
	}
	if raw.SportRelaxedMinChars != 0 {
		t.SportRelaxedMinChars = raw.SportRelaxedMinChars
	}
	if raw.QuickMinImageBytes != 0 {
		gates.Quick = raw.QuickMinImageBytes
	}
	if raw.BatchMinImageBytes != 0 {
		gates.Batch = raw.BatchMinImageBytes
	}
	if raw.CollectPreviewMinImageBytes != 0 {
		gates.Collection = raw.CollectPreviewMinImageBytes
	}
	return t, gates, nil
}
