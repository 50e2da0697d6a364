package vision

import (
	"image"
	"image/color"
)

const (
	claheTiles     = 8   // tile grid is claheTiles x claheTiles
	claheClipLimit = 2.0 // histogram clip limit relative to a uniform bin
)

// Enhance improves an image for face detection: contrast-limited adaptive
// histogram equalization on the luma channel followed by a light 3x3 blur to
// reduce noise. Chroma is passed through untouched. On degenerate inputs the
// original image is returned.
func Enhance(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width < claheTiles || height < claheTiles {
		return img
	}

	// Split into luma + chroma planes.
	luma := make([]uint8, width*height)
	cb := make([]uint8, width*height)
	cr := make([]uint8, width*height)
	for y := range height {
		for x := range width {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			yy, ycb, ycr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			idx := y*width + x
			luma[idx] = yy
			cb[idx] = ycb
			cr[idx] = ycr
		}
	}

	equalized := claheLuma(luma, width, height)
	blurred := blur3x3(equalized, width, height)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			idx := y*width + x
			r, g, b := color.YCbCrToRGB(blurred[idx], cb[idx], cr[idx])
			out.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return out
}

// claheLuma applies contrast-limited adaptive histogram equalization to a
// luma plane. Per-tile mappings are bilinearly interpolated per pixel to
// avoid visible tile seams.
func claheLuma(luma []uint8, width, height int) []uint8 {
	tileW := width / claheTiles
	tileH := height / claheTiles

	// Build one clipped-equalization lookup table per tile.
	luts := make([][256]uint8, claheTiles*claheTiles)
	for ty := range claheTiles {
		for tx := range claheTiles {
			x0 := tx * tileW
			y0 := ty * tileH
			x1 := x0 + tileW
			y1 := y0 + tileH
			if tx == claheTiles-1 {
				x1 = width
			}
			if ty == claheTiles-1 {
				y1 = height
			}
			luts[ty*claheTiles+tx] = tileLUT(luma, width, x0, y0, x1, y1)
		}
	}

	out := make([]uint8, len(luma))
	for y := range height {
		for x := range width {
			// Position relative to tile centers.
			fx := (float64(x) - float64(tileW)/2) / float64(tileW)
			fy := (float64(y) - float64(tileH)/2) / float64(tileH)

			tx0 := clampInt(int(fx), 0, claheTiles-1)
			ty0 := clampInt(int(fy), 0, claheTiles-1)
			tx1 := clampInt(tx0+1, 0, claheTiles-1)
			ty1 := clampInt(ty0+1, 0, claheTiles-1)

			wx := fx - float64(tx0)
			wy := fy - float64(ty0)
			if wx < 0 {
				wx = 0
			}
			if wx > 1 {
				wx = 1
			}
			if wy < 0 {
				wy = 0
			}
			if wy > 1 {
				wy = 1
			}

			v := luma[y*width+x]
			top := (1-wx)*float64(luts[ty0*claheTiles+tx0][v]) + wx*float64(luts[ty0*claheTiles+tx1][v])
			bottom := (1-wx)*float64(luts[ty1*claheTiles+tx0][v]) + wx*float64(luts[ty1*claheTiles+tx1][v])
			out[y*width+x] = uint8(clampFloat((1-wy)*top+wy*bottom, 0, 255))
		}
	}
	return out
}

// tileLUT computes the clipped histogram equalization mapping for one tile.
func tileLUT(luma []uint8, stride, x0, y0, x1, y1 int) [256]uint8 {
	var hist [256]int
	total := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[luma[y*stride+x]]++
			total++
		}
	}

	var lut [256]uint8
	if total == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	// Clip the histogram and redistribute the excess uniformly.
	clip := int(claheClipLimit * float64(total) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	share := excess / 256
	for i := range hist {
		hist[i] += share
	}

	// Cumulative distribution -> mapping.
	cum := 0
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8(clampFloat(float64(cum)*255/float64(total), 0, 255))
	}
	return lut
}

// blur3x3 applies a single-pass 3x3 Gaussian blur (kernel 1-2-1) to a plane.
func blur3x3(plane []uint8, width, height int) []uint8 {
	out := make([]uint8, len(plane))
	for y := range height {
		for x := range width {
			sum := 0
			weight := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					ny := y + dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					w := (2 - absInt(dx)) * (2 - absInt(dy))
					sum += int(plane[ny*width+nx]) * w
					weight += w
				}
			}
			out[y*width+x] = uint8(sum / weight)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
