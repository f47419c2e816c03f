package export

import "fmt"

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
}

// RendererFor returns the stock renderer for a format.
func RendererFor(format Format) (Renderer, error) {
	switch format {
	case FormatXLSX:
		return NewXLSXExporter(), nil
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("no renderer for format %q", format)
	}
}
