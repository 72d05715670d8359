package invoice

import (
	"context"
	"fmt"
	"os"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

// Converter turns rendered HTML into a PDF file at outPath. Kept as an
// interface so handler tests run without the wkhtmltopdf binary.
type Converter interface {
	Convert(ctx context.Context, html string, outPath string) error
}

// WkhtmltopdfConverter shells out to wkhtmltopdf, the same renderer the
// usual HTML-to-PDF toolchains wrap. The binary must be on PATH.
type WkhtmltopdfConverter struct{}

func NewWkhtmltopdfConverter() *WkhtmltopdfConverter {
	return &WkhtmltopdfConverter{}
}

func (c *WkhtmltopdfConverter) Convert(ctx context.Context, html string, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()

	if err != nil {
		return fmt.Errorf("init pdf generator: %w", err)
	}

	pdfg.AddPage(wkhtmltopdf.NewPageReader(strings.NewReader(html)))

	err = pdfg.Create()

	if err != nil {
		return fmt.Errorf("convert invoice to pdf: %w", err)
	}

	err = pdfg.WriteFile(outPath)

	if err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

// WritePDF converts html into a fresh temp file and hands back its path
// together with a cleanup func. Callers must defer cleanup so the file is
// removed on every exit path, including failed sends.
func WritePDF(ctx context.Context, conv Converter, html string) (path string, cleanup func(), err error) {
	tmp, err := os.CreateTemp("", "invoice-*.pdf")

	if err != nil {
		return "", nil, fmt.Errorf("create temp invoice file: %w", err)
	}

	path = tmp.Name()

	// the converter writes the file itself
	_ = tmp.Close()

	cleanup = func() { _ = os.Remove(path) }

	err = conv.Convert(ctx, html, path)

	if err != nil {
		cleanup()
		return "", nil, err
	}

	return path, cleanup, nil
}
