package retouch

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/example/retouch/imop"
)

// The error kinds surfaced by the compositing pipeline. None of them
// is retryable: compositing is deterministic, so a failed operation is
// rejected as-is and the prior confirmed image stays untouched.
var (
	// ErrNilInput reports a missing compositor input.
	ErrNilInput = errors.New("retouch: missing compositor input")
	// ErrDecode reports an input that cannot be decoded as a raster image.
	ErrDecode = errors.New("retouch: could not decode the input raster")
	// ErrBounds reports an input raster with empty bounds, for which
	// no drawing buffer can be acquired.
	ErrBounds = errors.New("retouch: empty image bounds")
)

// Compositor surgically merges an AI generated replacement image into
// the original: the painted mask is converted into an alpha channel,
// the replacement is clipped through it and layered over the original.
// Only mask covered pixels are replaced, everything else stays
// byte-identical to the original, independent of what the generative
// model returned outside the mask.
type Compositor struct {
	op *imop.Composite
}

// NewCompositor initializes the compositing pipeline.
func NewCompositor() *Compositor {
	return &Compositor{
		op: imop.InitOp(),
	}
}

// Composite produces the final image at the original's resolution:
//
//  1. the mask is resampled to the original's exact dimensions;
//  2. an alpha channel is derived from the resampled mask, averaging
//     its color channels;
//  3. the AI result is resampled to the original's dimensions;
//  4. the AI result gets its alpha channel replaced by the derived
//     alpha, a destination-alpha clip rather than a blend;
//  5. the clipped layer is drawn over the original with the src-over
//     operator.
//
// Where the derived alpha is 0 the output pixel equals the original
// pixel exactly, where it is 255 the output equals the resampled AI
// result, intermediate values blend linearly.
func (c *Compositor) Composite(original, aiResult, mask image.Image) (*image.NRGBA, error) {
	if original == nil || aiResult == nil || mask == nil {
		return nil, ErrNilInput
	}

	orig := ImgToNRGBA(original)
	w, h := orig.Bounds().Dx(), orig.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, ErrBounds
	}

	// Bilinear for the mask: Lanczos rings on hard mask edges, which
	// would leak alpha outside the painted region.
	maskImg := resample(mask, w, h, imaging.Linear)
	alpha := imop.AlphaMask(maskImg)

	result := resample(aiResult, w, h, imaging.Lanczos)
	layer := imop.Clip(result, alpha)

	c.op.Set(imop.SrcOver)
	bmp := c.op.Draw(imop.NewBitmap(orig.Bounds()), layer, orig)

	return bmp.Img, nil
}

// CompositeEncoded is the encoded-raster variant of Composite, used
// on the interchange boundary where the original, the AI reply and
// the exported mask travel as encoded images.
func (c *Compositor) CompositeEncoded(original, aiResult, mask []byte) (*image.NRGBA, error) {
	decode := func(name string, data []byte) (*image.NRGBA, error) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
		}
		return ImgToNRGBA(img), nil
	}

	origImg, err := decode("original", original)
	if err != nil {
		return nil, err
	}
	resImg, err := decode("result", aiResult)
	if err != nil {
		return nil, err
	}
	maskImg, err := decode("mask", mask)
	if err != nil {
		return nil, err
	}

	return c.Composite(origImg, resImg, maskImg)
}

// resample scales the image to the exact target dimensions, skipping
// the filter entirely when the dimensions already match so that
// same-size inputs keep their pixels bit for bit.
func resample(img image.Image, w, h int, filter imaging.ResampleFilter) *image.NRGBA {
	if img.Bounds().Dx() == w && img.Bounds().Dy() == h {
		return ImgToNRGBA(img)
	}
	return imaging.Resize(img, w, h, filter)
}
