package enhance

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/gift"
	_ "golang.org/x/image/webp"
)

// MaxInputPixels is the largest pixel count the model accepts safely at scale 2.
const MaxInputPixels = 524176

const jpegQuality = 90

// PreparePayload decodes an uploaded image, downscales it if it exceeds
// MaxInputPixels, and re-encodes it as a base64 JPEG data URI for the provider.
func PreparePayload(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx()*bounds.Dy() > MaxInputPixels {
		img = downscale(img, bounds.Dx(), bounds.Dy())
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// downscale resizes to the largest dimensions under MaxInputPixels that keep
// the aspect ratio: newH = floor(sqrt(max/aspect)), newW = floor(newH*aspect).
func downscale(src image.Image, width, height int) image.Image {
	aspect := float64(width) / float64(height)
	newHeight := int(math.Floor(math.Sqrt(float64(MaxInputPixels) / aspect)))
	newWidth := int(math.Floor(float64(newHeight) * aspect))

	g := gift.New(gift.Resize(newWidth, newHeight, gift.LanczosResampling))
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}
