package imagestage

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// renderWeb resizes src so that it fits within maxW x maxH without ever
// upscaling, re-encoding it in its original format via imaging. Fit
// already refuses to enlarge past the source's own dimensions, so no
// extra guard is needed to satisfy the never-upscale rule.
func renderWeb(src image.Image, format imaging.Format, maxW, maxH int) ([]byte, error) {
	resized := imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, fmt.Errorf("encode web rendition: %w", err)
	}
	return buf.Bytes(), nil
}

// renderMobile resizes src to fit within maxW x maxH, then binary-searches
// the WebP quality parameter in [qualityMin, qualityMax] for the highest
// quality whose encoded size is still within maxBytes. If even qualityMin
// exceeds the budget, the image is additionally scaled down in 0.1
// increments until the budget is met or either side would fall below
// minDimension, at which point it is emitted at minDimension x
// minDimension and qualityMin regardless of final size.
func renderMobile(src image.Image, maxW, maxH, maxBytes, qualityMin, qualityMax, minDimension int) ([]byte, error) {
	resized := imaging.Fit(src, maxW, maxH, imaging.Lanczos)

	encoded, ok := encodeWithinBudget(resized, maxBytes, qualityMin, qualityMax)
	if ok {
		return encoded, nil
	}

	scale := 1.0
	for {
		scale -= 0.1
		bounds := resized.Bounds()
		w := int(float64(bounds.Dx()) * scale)
		h := int(float64(bounds.Dy()) * scale)
		if w < minDimension || h < minDimension || scale <= 0 {
			floor := imaging.Resize(resized, minDimension, minDimension, imaging.Lanczos)
			data, err := encodeAtQuality(floor, qualityMin)
			if err != nil {
				return nil, err
			}
			return data, nil
		}

		scaled := imaging.Resize(resized, w, h, imaging.Lanczos)
		if encoded, ok := encodeWithinBudget(scaled, maxBytes, qualityMin, qualityMax); ok {
			return encoded, nil
		}
	}
}

// encodeWithinBudget binary-searches quality in [qualityMin, qualityMax]
// for the highest quality whose encoded byte size is <= maxBytes.
func encodeWithinBudget(img image.Image, maxBytes, qualityMin, qualityMax int) ([]byte, bool) {
	lowData, err := encodeAtQuality(img, qualityMin)
	if err != nil || len(lowData) > maxBytes {
		return nil, false
	}

	best := lowData
	lo, hi := qualityMin, qualityMax
	for lo <= hi {
		mid := (lo + hi) / 2
		data, err := encodeAtQuality(img, mid)
		if err == nil && len(data) <= maxBytes {
			best = data
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, true
}

func encodeAtQuality(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, fmt.Errorf("encode webp at quality %d: %w", quality, err)
	}
	return buf.Bytes(), nil
}
