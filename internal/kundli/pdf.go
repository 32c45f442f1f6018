package kundli

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin = 15.0
	pageWidth  = 210.0
)

// RenderPDF строит отчёт: реквизиты расчёта, три карты варг и карту бхав.
func RenderPDF(result *Result, now time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(125, 28, 28)
	pdf.CellFormat(0, 12, "AstrobyAB Kundli Report", "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	generated := result.Metadata.GeneratedAt
	if generated == "" {
		generated = formatGeneratedAt(now)
	}
	details := []string{
		"Generated: " + generated,
		"Engine: " + orDefault(result.Metadata.Engine, EngineExternal),
		"Ayanamsa: " + orDefault(result.Metadata.Ayanamsa, DefaultAyanamsa),
		"DOB: " + orDefault(result.Input.DateOfBirth, "-"),
		"TOB: " + orDefault(result.Input.TimeOfBirth, "-"),
		"Place: " + orDefault(result.Input.PlaceOfBirth, "-"),
		"Timezone: " + orDefault(result.Input.Timezone, "-"),
	}
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range details {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}

	if result.Ascendant != "" && result.Ascendant != unknown {
		pdf.Ln(2)
		pdf.CellFormat(0, 6, fmt.Sprintf("Ascendant: %s   Rashi: %s   Nakshatra: %s   Sun: %s",
			result.Ascendant, result.Rashi, result.Nakshatra, result.SunSign), "", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Charts (D1, D9, D10, Bhava)", "", 1, "L", false, 0, "")

	var charts Charts
	if result.Charts != nil {
		charts = *result.Charts
	}
	const gap = 4.0
	boxWidth := (pageWidth - 2*pageMargin - 2*gap) / 3
	boxHeight := 62.0
	top := pdf.GetY() + 2
	labeled := []struct {
		label string
		chart Chart
	}{
		{"D1 (Rasi)", charts.D1},
		{"D9 (Navamsa)", charts.D9},
		{"D10 (Dasamsa)", charts.D10},
	}
	for i, c := range labeled {
		x := pageMargin + float64(i)*(boxWidth+gap)
		drawChartBox(pdf, x, top, boxWidth, boxHeight, c.label, c.chart)
	}

	bhavaTop := top + boxHeight + 10
	pdf.SetXY(pageMargin, bhavaTop)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Bhava Chart", "", 1, "L", false, 0, "")
	drawBhava(pdf, pageMargin, bhavaTop+10, pageWidth-2*pageMargin, charts.Bhava)

	if pdf.Err() {
		return nil, fmt.Errorf("kundli pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("kundli pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawChartBox(pdf *gofpdf.Fpdf, x, y, w, h float64, label string, chart Chart) {
	pdf.SetDrawColor(204, 204, 204)
	pdf.Rect(x, y, w, h, "D")

	pdf.SetXY(x+2, y+2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w-4, 5, label, "", 2, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	if len(chart.Houses) == 0 {
		pdf.CellFormat(w-4, 4, "Chart data rendered in app view.", "", 2, "L", false, 0, "")
		return
	}
	if chart.Ascendant != "" {
		pdf.CellFormat(w-4, 4, "Lagna: "+chart.Ascendant, "", 2, "L", false, 0, "")
	}
	for _, house := range chart.Houses {
		line := fmt.Sprintf("%2d %s", house.Number, house.Sign)
		if len(house.Planets) > 0 {
			line += ": " + strings.Join(house.Planets, ", ")
		}
		pdf.CellFormat(w-4, 4, line, "", 2, "L", false, 0, "")
	}
}

func drawBhava(pdf *gofpdf.Fpdf, x, y, w float64, chart Chart) {
	const rowHeight = 5.0
	pdf.SetDrawColor(204, 204, 204)
	if len(chart.Houses) == 0 {
		pdf.Rect(x, y, w, 30, "D")
		pdf.SetXY(x+3, y+4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(w-6, 5, "Bhava details are available in the app view.", "", 1, "L", false, 0, "")
		return
	}

	cols := []float64{20, 40, 20, w - 80}
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 9)
	for i, title := range []string{"House", "Sign", "Degree", "Planets"} {
		pdf.CellFormat(cols[i], rowHeight+1, title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, house := range chart.Houses {
		pdf.SetX(x)
		pdf.CellFormat(cols[0], rowHeight, fmt.Sprintf("%d", house.Number), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], rowHeight, house.Sign, "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], rowHeight, fmt.Sprintf("%.2f", house.Degree), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3], rowHeight, orDefault(strings.Join(house.Planets, ", "), "-"), "1", 1, "L", false, 0, "")
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
