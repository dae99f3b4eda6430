package classifier

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// downscale shrinks an image so its longer side is at most maxSide and
// re-encodes it as JPEG. Small or undecodable images are returned unchanged
// and left for the embedder to judge.
func downscale(data []byte, filename string, maxSide int) ([]byte, string) {
	if maxSide <= 0 {
		return data, filename
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, filename
	}

	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return data, filename
	}

	resized := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return data, filename
	}

	return buf.Bytes(), "image.jpg"
}
