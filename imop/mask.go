package imop

import "image"

// AlphaMask derives a per-pixel alpha channel from the mask image,
// averaging the three color channels: alpha = round((R+G+B)/3).
// A colored or anti-aliased mask therefore degrades to a soft,
// luminance based alpha rather than a hard threshold. The mask's own
// alpha channel is ignored.
func AlphaMask(mask *image.NRGBA) []uint8 {
	rect := mask.Bounds()
	dx, dy := rect.Dx(), rect.Dy()
	alpha := make([]uint8, dx*dy)

	for y := 0; y < dy; y++ {
		mi := mask.PixOffset(rect.Min.X, rect.Min.Y+y)
		for x := 0; x < dx; x++ {
			sum := uint32(mask.Pix[mi]) + uint32(mask.Pix[mi+1]) + uint32(mask.Pix[mi+2])
			alpha[y*dx+x] = uint8((sum + 1) / 3)
			mi += 4
		}
	}

	return alpha
}

// Clip replaces the alpha channel of the source image with the
// provided per-pixel alpha values, producing a destination-alpha
// masked copy: pixels with alpha 0 become fully transparent and
// contribute nothing when the result is composed over a backdrop.
// The alpha slice must hold one value per source pixel in row-major
// order, as produced by AlphaMask.
func Clip(src *image.NRGBA, alpha []uint8) *image.NRGBA {
	rect := src.Bounds()
	dx, dy := rect.Dx(), rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, dx, dy))

	for y := 0; y < dy; y++ {
		si := src.PixOffset(rect.Min.X, rect.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < dx; x++ {
			dst.Pix[di] = src.Pix[si]
			dst.Pix[di+1] = src.Pix[si+1]
			dst.Pix[di+2] = src.Pix[si+2]
			dst.Pix[di+3] = alpha[y*dx+x]
			si += 4
			di += 4
		}
	}

	return dst
}
