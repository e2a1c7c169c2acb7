package payload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// firstPDFPage extracts page 1 of a PDF into a standalone single-page PDF
// and returns its bytes. The model consumes PDF bytes natively, so no
// raster step is involved. Scanner output is occasionally sloppy, hence the
// relaxed validation mode.
func firstPDFPage(path string) (*Payload, error) {
	base := filepath.Base(path)

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", base, err)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("PDF %s contains no pages", base)
	}

	tempDir, err := os.MkdirTemp("", "scannamer-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	firstPage := filepath.Join(tempDir, "page_1.pdf")
	if err := api.TrimFile(path, firstPage, []string{"1"}, relaxedPDFConfig()); err != nil {
		return nil, fmt.Errorf("failed to extract first page of %s: %w", base, err)
	}

	data, err := os.ReadFile(firstPage)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted page of %s: %w", base, err)
	}
	return &Payload{MIME: "application/pdf", Data: data}, nil
}

func relaxedPDFConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
