// Package payload produces the first-page bytes handed to the
// content-understanding model: images are read (and downscaled past a size
// cap), PDFs have their first page extracted as a single-page document.
package payload

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// maxInlineBytes is the size past which an image is downscaled before
	// being sent inline to the model.
	maxInlineBytes = 5 * 1024 * 1024
	// maxDimension caps the longer edge of a downscaled image.
	maxDimension = 1600
	jpegQuality  = 85
)

// extensionMIME is the fallback content-type map when sniffing the bytes
// yields nothing useful.
var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Payload is the byte blob plus content type sent to the model.
type Payload struct {
	MIME string
	Data []byte
}

// FirstPage builds the model payload for a scan file. For images the file
// bytes are used directly unless they exceed maxInlineBytes, in which case
// the image is downscaled. For PDFs the first page is extracted as a
// standalone single-page PDF. Any failure aborts the payload; the caller
// skips the document.
func FirstPage(path string) (*Payload, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		return firstPDFPage(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", filepath.Base(path), err)
	}
	if int64(len(data)) > maxInlineBytes {
		data, err = shrinkImage(data, maxDimension)
		if err != nil {
			return nil, fmt.Errorf("failed to downscale %s: %w", filepath.Base(path), err)
		}
	}
	return &Payload{MIME: detectMIME(data, ext), Data: data}, nil
}

// shrinkImage decodes, fits the image into a maxDim square preserving aspect
// ratio (never upscaling), and re-encodes in the original format. PNG stays
// PNG; everything else becomes JPEG.
func shrinkImage(data []byte, maxDim int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = imaging.Encode(&buf, resized, imaging.PNG)
	default:
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// detectMIME sniffs the content type from the bytes themselves, falling back
// to the extension map when detection is inconclusive.
func detectMIME(data []byte, ext string) string {
	if m := mimetype.Detect(data); m.String() != "application/octet-stream" {
		return m.String()
	}
	if m, ok := extensionMIME[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
