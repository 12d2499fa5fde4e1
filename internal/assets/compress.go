package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Compress constrains the longest edge of an image to maxEdge and re-encodes
// it: PNG stays PNG, everything else becomes JPEG at quality (0,1]. When the
// image needed no resize and re-encoding would make it bigger, the original
// bytes are kept.
func Compress(data []byte, maxEdge int, quality float64) ([]byte, string, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	resized := false

	if maxEdge > 0 && (w > maxEdge || h > maxEdge) {
		scale := float64(maxEdge) / float64(max(w, h))
		nw := max(1, int(math.Round(float64(w)*scale)))
		nh := max(1, int(math.Round(float64(h)*scale)))

		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		src = dst
		resized = true
	}

	var buf bytes.Buffer
	contentType := "image/jpeg"
	if format == "png" {
		contentType = "image/png"
		if err := png.Encode(&buf, src); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
	} else {
		q := int(math.Round(quality * 100))
		q = min(max(q, 1), 100)
		if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: q}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
	}

	if !resized && buf.Len() >= len(data) {
		return data, "image/" + format, nil
	}
	return buf.Bytes(), contentType, nil
}
