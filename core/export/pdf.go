package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"rpi-diario/core/store"
)

type PDFOptions struct {
	Title    string
	UnitLine string
	// MediaDir is the root the stored photo paths are relative to.
	MediaDir string
}

// RenderPDF renders the aggregated report. Photos that cannot be read are
// skipped, never failing the export.
func RenderPDF(r *Report, opts PDFOptions) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 7, tr(opts.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(opts.UnitLine), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("RELATÓRIO Nº %s", r.Report.Number())), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Período: %s a %s", r.StartMil, r.EndMil)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(r.General) > 0 {
		sectionTitle(pdf, tr, "1. OCORRÊNCIAS")
		for i, entry := range r.General {
			writeOccurrence(pdf, tr, fmt.Sprintf("%d.", i+1), entry.Occurrence, opts.MediaDir)
		}
	}

	if len(r.CVLI) > 0 {
		sectionTitle(pdf, tr, fmt.Sprintf("%d. CVLI", r.CVLIItemNumber))
		for _, entry := range r.CVLI {
			writeOccurrence(pdf, tr, entry.Letter+")", entry.Occurrence, opts.MediaDir)
		}
		writeSummaryTable(pdf, tr, r)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 7, tr(title), "1", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func writeOccurrence(pdf *gofpdf.Fpdf, tr func(string) string, label string, occ store.Occurrence, mediaDir string) {
	pdf.SetFont("Helvetica", "B", 10)
	head := fmt.Sprintf("%s %s - %s", label, strings.ToUpper(occ.NatureName), occ.OccurredToken)
	pdf.MultiCell(0, 5, tr(head), "", "L", false)
	pdf.SetFont("Helvetica", "", 10)

	meta := fmt.Sprintf("OPM: %s", UnitAcronym(occ))
	if occ.Municipality != "" {
		meta += fmt.Sprintf("  |  Município: %s", occ.Municipality)
	}
	if occ.Action == store.ActionAttempted {
		meta += "  |  Tentado"
	}
	pdf.MultiCell(0, 5, tr(meta), "", "L", false)

	if occ.Narrative != "" {
		pdf.MultiCell(0, 5, tr(occ.Narrative), "", "J", false)
	} else if occ.Summary != "" {
		pdf.MultiCell(0, 5, tr(occ.Summary), "", "J", false)
	}

	for _, p := range occ.Parties {
		line := fmt.Sprintf("- %s: %s", store.PartyRoleLabels[p.Role], p.Name)
		if p.Age != nil {
			line += fmt.Sprintf(", %d anos", *p.Age)
		}
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	for _, item := range occ.Seizures {
		line := fmt.Sprintf("- Apreensão: %s (%g %s)", item.MaterialName, item.Quantity, item.UnitOfMeasure)
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	for _, photo := range occ.Photos {
		writePhoto(pdf, tr, photo, mediaDir)
	}
	pdf.Ln(3)
}

func writePhoto(pdf *gofpdf.Fpdf, tr func(string) string, photo store.OccurrencePhoto, mediaDir string) {
	path := photo.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(mediaDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	imageType := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if imageType == "jpeg" {
		imageType = "jpg"
	}
	if imageType != "jpg" && imageType != "png" && imageType != "gif" {
		return
	}
	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	pdf.ImageOptions(path, -1, -1, 80, 0, true, opts, 0, "")
	if photo.Caption != "" {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(0, 4, tr(photo.Caption), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
	}
}

func writeSummaryTable(pdf *gofpdf.Fpdf, tr func(string) string, r *Report) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr("RESUMO CVLI"), "", 1, "L", false, 0, "")

	widths := []float64{55, 40, 25, 60}
	headers := []string{"Município", "OPM", "Vítimas", "Instrumento"}
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range r.Summary {
		pdf.CellFormat(widths[0], 6, tr(row.Municipality), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(row.UnitAcronym), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", row.Victims), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(row.Instrument), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1], 6, tr("Total"), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d", r.TotalVictims), "1", 0, "C", false, 0, "")
	pdf.CellFormat(widths[3], 6, tr(r.UnitLine), "1", 0, "L", false, 0, "")
	pdf.Ln(-1)
}
