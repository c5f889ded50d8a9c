package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// reflect101 maps an out-of-range coordinate back into [0, n) mirroring around the
// edge pixel without repeating it (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}

// Grayscale converts any decoded image to 8-bit luma.
func Grayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	return gray
}

// convolve applies a 3x3 kernel and returns the raw float response per pixel.
func convolve(src *image.Gray, kernel [3][3]float64) []float64 {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for ky := -1; ky <= 1; ky++ {
				sy := reflect101(y+ky, h)
				row := src.Pix[sy*src.Stride:]
				for kx := -1; kx <= 1; kx++ {
					sx := reflect101(x+kx, w)
					sum += float64(row[sx]) * kernel[ky+1][kx+1]
				}
			}
			out[y*w+x] = sum
		}
	}
	return out
}

func fromFloats(w, h int, vals []float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range vals {
		out.Pix[i] = clampByte(v)
	}
	return out
}

var gaussian3 = [3][3]float64{
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
	{2.0 / 16, 4.0 / 16, 2.0 / 16},
	{1.0 / 16, 2.0 / 16, 1.0 / 16},
}

// GaussianBlur applies the separable 3x3 kernel [1 2 1]/4.
func GaussianBlur(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	return fromFloats(w, h, convolve(src, gaussian3))
}

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// SobelEdge computes the gradient magnitude, rescaled so the strongest edge is 255.
// A flat image has no edges and yields all zeros.
func SobelEdge(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	gx := convolve(src, sobelX)
	gy := convolve(src, sobelY)

	mag := make([]float64, len(gx))
	var peak float64
	for i := range gx {
		mag[i] = math.Sqrt(gx[i]*gx[i] + gy[i]*gy[i])
		if mag[i] > peak {
			peak = mag[i]
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	if peak == 0 {
		return out
	}
	for i, m := range mag {
		// truncation, matching an unsigned cast
		out.Pix[i] = uint8(m / peak * 255)
	}
	return out
}

var sharpenKernel = [3][3]float64{{0, -1, 0}, {-1, 5, -1}, {0, -1, 0}}

// Sharpen applies a Laplacian sharpening kernel with saturation.
func Sharpen(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	return fromFloats(w, h, convolve(src, sharpenKernel))
}

// AdjustBrightness adds delta to every pixel, clipping to [0, 255].
func AdjustBrightness(src *image.Gray, delta int) *image.Gray {
	out := image.NewGray(src.Bounds())
	for i, p := range src.Pix {
		v := int(p) + delta
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out.Pix[i] = uint8(v)
	}
	return out
}
