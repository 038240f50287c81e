package receipt

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/odyssey-erp/odyssey-dms/report"
	"github.com/odyssey-erp/odyssey-dms/web"
)

const templateName = "receipts/loading_receipt.html"

// PDFConverter turns HTML into PDF bytes.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html string, opts report.PageOptions) ([]byte, error)
}

// Renderer fills the embedded receipt template and converts it to PDF.
type Renderer struct {
	converter PDFConverter
	templates *template.Template
}

// NewRenderer parses the receipt template.
func NewRenderer(converter PDFConverter) (*Renderer, error) {
	tpl, err := template.New("loading_receipt.html").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(web.Templates, "templates/receipts/loading_receipt.html")
	if err != nil {
		return nil, fmt.Errorf("parse receipt template: %w", err)
	}
	return &Renderer{converter: converter, templates: tpl}, nil
}

// HTML renders the receipt document.
func (r *Renderer) HTML(p Payload) (string, error) {
	buf := &bytes.Buffer{}
	if err := r.templates.ExecuteTemplate(buf, templateName, p); err != nil {
		return "", fmt.Errorf("render receipt template: %w", err)
	}
	return buf.String(), nil
}

// Render returns the receipt as PDF.
func (r *Renderer) Render(ctx context.Context, p Payload) ([]byte, error) {
	html, err := r.HTML(p)
	if err != nil {
		return nil, err
	}
	return r.converter.RenderHTML(ctx, html, report.A5)
}
