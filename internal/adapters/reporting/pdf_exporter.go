// Package reporting renders evidence manifests into shareable documents.
package reporting

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/skyward-ops/droneops/internal/core/domain"
)

// PDFExporter exports evidence manifests to PDF format.
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportManifest generates a PDF summary of a sealed evidence manifest.
func (e *PDFExporter) ExportManifest(manifest *domain.EvidenceManifest) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	e.addHeader(pdf, manifest)
	e.addIntegrity(pdf, manifest)
	e.addBody(pdf, manifest)
	e.addFooter(pdf, manifest)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, manifest *domain.EvidenceManifest) {
	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(0, 51, 102) // Dark blue
	pdf.CellFormat(0, 14, "Evidence Manifest", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, fmt.Sprintf("Manifest #%d for incident #%d", manifest.ID, manifest.IncidentID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Created by %s on %s", manifest.CreatedBy, manifest.CreatedAt.Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (e *PDFExporter) addIntegrity(pdf *gofpdf.Fpdf, manifest *domain.EvidenceManifest) {
	pdf.SetFillColor(232, 240, 254)
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 9, "Integrity", "1", 1, "L", true, 0, "")

	pdf.SetFont("Courier", "", 9)
	pdf.CellFormat(0, 7, fmt.Sprintf("%s:%s", manifest.HashAlgo, manifest.Digest), "1", 1, "L", false, 0, "")
	if manifest.Signature != nil {
		pdf.CellFormat(0, 7, "signature: "+*manifest.Signature, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (e *PDFExporter) addBody(pdf *gofpdf.Fpdf, manifest *domain.EvidenceManifest) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 9, "Contents", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 10)

	keys := make([]string, 0, len(manifest.Manifest))
	for k := range manifest.Manifest {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch value := manifest.Manifest[key].(type) {
		case []any:
			pdf.CellFormat(0, 6, fmt.Sprintf("%s: %d entries", key, len(value)), "", 1, "L", false, 0, "")
		case map[string]any:
			pdf.CellFormat(0, 6, key+":", "", 1, "L", false, 0, "")
			e.addNested(pdf, value)
		default:
			pdf.CellFormat(0, 6, fmt.Sprintf("%s: %v", key, value), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)
}

func (e *PDFExporter) addNested(pdf *gofpdf.Fpdf, value map[string]any) {
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		pdf.CellFormat(0, 6, fmt.Sprintf("    %s: %v", k, value[k]), "", 1, "L", false, 0, "")
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, manifest *domain.EvidenceManifest) {
	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 6, fmt.Sprintf("Verify integrity by recomputing %s over the canonical manifest body.", manifest.HashAlgo), "", 1, "C", false, 0, "")
}
