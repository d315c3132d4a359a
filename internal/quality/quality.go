// Package quality computes simple photo quality metrics used to pick the
// best photo out of a duplicate group.
package quality

import "math"

// Metrics holds per-photo quality measurements. Brightness and Contrast are
// on the 0-255 luminance scale, Sharpness is mean gradient energy and
// Composite folds all three into a 0-100 score.
type Metrics struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Sharpness  float64 `json:"sharpness"`
	Composite  float64 `json:"composite"`
}

// Measure computes metrics from an RGBA pixel buffer. Degenerate input
// returns zero metrics.
func Measure(pixels []byte, width, height int) Metrics {
	if width <= 0 || height <= 0 || len(pixels) < width*height*4 {
		return Metrics{}
	}

	luma := make([]float64, width*height)
	for i := 0; i < width*height; i++ {
		r := float64(pixels[i*4])
		g := float64(pixels[i*4+1])
		b := float64(pixels[i*4+2])
		luma[i] = 0.299*r + 0.587*g + 0.114*b
	}

	var sum float64
	for _, v := range luma {
		sum += v
	}
	brightness := sum / float64(len(luma))

	var variance float64
	for _, v := range luma {
		d := v - brightness
		variance += d * d
	}
	contrast := math.Sqrt(variance / float64(len(luma)))

	sharpness := laplacianEnergy(luma, width, height)

	return Metrics{
		Brightness: brightness,
		Contrast:   contrast,
		Sharpness:  sharpness,
		Composite:  composite(brightness, contrast, sharpness),
	}
}

// laplacianEnergy returns the mean absolute response of a 4-neighbor
// Laplacian over interior pixels. Higher values mean sharper images.
func laplacianEnergy(luma []float64, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}

	var sum float64
	var count int
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			center := luma[y*width+x]
			lap := luma[(y-1)*width+x] + luma[(y+1)*width+x] +
				luma[y*width+x-1] + luma[y*width+x+1] - 4*center
			sum += math.Abs(lap)
			count++
		}
	}
	return sum / float64(count)
}

// composite maps the raw metrics onto a 0-100 score. Brightness is scored
// by distance from mid-gray, contrast and sharpness saturate at empirical
// ceilings.
func composite(brightness, contrast, sharpness float64) float64 {
	brightnessScore := 100 - math.Abs(brightness-128)/128*100
	contrastScore := math.Min(contrast/64, 1) * 100
	sharpnessScore := math.Min(sharpness/32, 1) * 100

	score := 0.25*brightnessScore + 0.35*contrastScore + 0.40*sharpnessScore
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
