// Package imop implements the subset of the Porter-Duff composition
// operations the retouching pipeline relies on. The image/draw core
// package only exposes the source-over-destination and source
// operators and converts everything through premultiplied alpha,
// which loses byte exactness at the alpha extremes. The operators
// below work on straight (non-premultiplied) NRGBA values with
// integer arithmetic and keep the 0 and 255 alpha endpoints exact.
package imop

import (
	"image"

	"github.com/example/retouch/utils"
)

// The supported composition operators.
const (
	Copy    = "copy"
	SrcOver = "src_over"
	SrcIn   = "src_in"
	DstIn   = "dst_in"
	DstOut  = "dst_out"
)

// Bitmap holds the destination buffer of a composition operation.
type Bitmap struct {
	Img *image.NRGBA
}

// Composite holds the currently active composition operator.
type Composite struct {
	current string
	ops     []string
}

// NewBitmap allocates a new composition buffer of the given size.
func NewBitmap(rect image.Rectangle) *Bitmap {
	return &Bitmap{
		Img: image.NewNRGBA(rect),
	}
}

// InitOp initializes a new Composite with src-over as the default operator.
func InitOp() *Composite {
	return &Composite{
		current: SrcOver,
		ops: []string{
			Copy,
			SrcOver,
			SrcIn,
			DstIn,
			DstOut,
		},
	}
}

// Set activates one of the supported composition operators.
func (op *Composite) Set(cop string) {
	if utils.Contains(op.ops, cop) {
		op.current = cop
	}
}

// Get returns the currently active composition operator.
func (op *Composite) Get() string {
	return op.current
}

// Draw composes the source over the backdrop into the bitmap using the
// active operator. The source and the backdrop are expected to share
// the same bounds; pixels outside the common intersection are left
// untouched. A nil bitmap gets allocated at the source bounds.
func (op *Composite) Draw(bitmap *Bitmap, src, bdp *image.NRGBA) *Bitmap {
	if bitmap == nil {
		bitmap = NewBitmap(src.Bounds())
	}
	rect := src.Bounds().Intersect(bdp.Bounds()).Intersect(bitmap.Img.Bounds())

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		si := src.PixOffset(rect.Min.X, y)
		bi := bdp.PixOffset(rect.Min.X, y)
		di := bitmap.Img.PixOffset(rect.Min.X, y)

		for x := rect.Min.X; x < rect.Max.X; x++ {
			sr, sg, sb, sa := src.Pix[si], src.Pix[si+1], src.Pix[si+2], src.Pix[si+3]
			br, bg, bb, ba := bdp.Pix[bi], bdp.Pix[bi+1], bdp.Pix[bi+2], bdp.Pix[bi+3]

			var r, g, b, a uint8
			switch op.current {
			case Copy:
				r, g, b, a = sr, sg, sb, sa
			case SrcOver:
				r, g, b, a = srcOver(sr, sg, sb, sa, br, bg, bb, ba)
			case SrcIn:
				r, g, b = sr, sg, sb
				a = mul255(sa, ba)
			case DstIn:
				r, g, b = br, bg, bb
				a = mul255(ba, sa)
			case DstOut:
				r, g, b = br, bg, bb
				a = mul255(ba, 255-sa)
			}

			bitmap.Img.Pix[di] = r
			bitmap.Img.Pix[di+1] = g
			bitmap.Img.Pix[di+2] = b
			bitmap.Img.Pix[di+3] = a

			si += 4
			bi += 4
			di += 4
		}
	}

	return bitmap
}

// srcOver applies the source-over-destination formula on straight
// alpha components. A fully transparent source leaves the backdrop
// pixel untouched and a fully opaque source replaces it entirely,
// byte for byte.
func srcOver(sr, sg, sb, sa, br, bg, bb, ba uint8) (uint8, uint8, uint8, uint8) {
	switch sa {
	case 0:
		return br, bg, bb, ba
	case 255:
		return sr, sg, sb, sa
	}

	// The blended alpha scaled by 255, used as the un-premultiply divisor.
	den := uint32(sa)*255 + uint32(ba)*uint32(255-sa)
	if den == 0 {
		return 0, 0, 0, 0
	}

	blend := func(sc, bc uint8) uint8 {
		num := uint32(sc)*uint32(sa)*255 + uint32(bc)*uint32(ba)*uint32(255-sa)
		return uint8((num + den/2) / den)
	}

	a := uint8((den + 127) / 255)
	return blend(sr, br), blend(sg, bg), blend(sb, bb), a
}

// mul255 multiplies two 8 bit alpha values with rounding.
func mul255(x, y uint8) uint8 {
	return uint8((uint32(x)*uint32(y) + 127) / 255)
}
