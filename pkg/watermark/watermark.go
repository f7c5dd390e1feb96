// Package watermark stamps free-tier outputs.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	logoWidthRatio = 0.25
	logoOpacity    = 0.6
	marginRatio    = 0.03
)

type Watermarker struct {
	logo image.Image
}

// New loads the logo at logoPath. An empty path uses a generated translucent band.
func New(logoPath string) (*Watermarker, error) {
	if logoPath == "" {
		return &Watermarker{}, nil
	}
	logo, err := imaging.Open(logoPath)
	if err != nil {
		return nil, fmt.Errorf("watermark: open logo: %w", err)
	}
	return &Watermarker{logo: logo}, nil
}

// Apply returns the watermarked image encoded as JPEG.
func (w *Watermarker) Apply(data []byte) ([]byte, string, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("watermark: decode: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var out *image.NRGBA
	if w.logo != nil {
		logoWidth := int(float64(width) * logoWidthRatio)
		if logoWidth < 1 {
			logoWidth = 1
		}
		mark := imaging.Resize(w.logo, logoWidth, 0, imaging.Lanczos)
		margin := int(float64(width) * marginRatio)
		pos := image.Pt(width-mark.Bounds().Dx()-margin, height-mark.Bounds().Dy()-margin)
		out = imaging.Overlay(src, mark, pos, logoOpacity)
	} else {
		band := stripedBand(width, height/10+1)
		out = imaging.Overlay(src, band, image.Pt(0, height-band.Bounds().Dy()), 1.0)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("watermark: encode: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// stripedBand is a dark translucent strip with lighter diagonal stripes.
func stripedBand(width, height int) *image.NRGBA {
	band := imaging.New(width, height, color.NRGBA{R: 0, G: 0, B: 0, A: 110})
	stripe := color.NRGBA{R: 255, G: 255, B: 255, A: 90}
	period := height
	if period < 8 {
		period = 8
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%period < period/4 {
				band.SetNRGBA(x, y, stripe)
			}
		}
	}
	return band
}
