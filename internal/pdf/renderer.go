// Package pdf renders itinerary text into a paginated A4 document with
// clickable booking links.
package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
)

const (
	fontFamily   = "Helvetica"
	bodySize     = 10.5
	lineHeight   = 5.5
	bulletIndent = 6.0
)

type lineKind int

const (
	kindBlank lineKind = iota
	kindTitle
	kindDayHeading
	kindBullet
	kindBooking
	kindRule
	kindParagraph
)

var (
	titleLine   = regexp.MustCompile(`^(#{1,3}\s+.+|\*\*[^*].*\*\*)$`)
	dayHeading  = regexp.MustCompile(`(?i)^[\s*_#]*day\s+\d+\b`)
	bulletLine  = regexp.MustCompile(`^\s*(?:•|-|\*)\s+`)
	ruleLine    = regexp.MustCompile(`^\s*-{3,}\s*$`)
	markdownURL = regexp.MustCompile(`\]\(([^)\s]+)\)`)
)

// classify decides how a line is laid out. Only the first title-shaped line
// is a title.
func classify(line string, titleSeen bool) lineKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return kindBlank
	case ruleLine.MatchString(trimmed):
		return kindRule
	case dayHeading.MatchString(trimmed):
		return kindDayHeading
	case !titleSeen && titleLine.MatchString(trimmed):
		return kindTitle
	case isBookingLine(trimmed):
		return kindBooking
	case bulletLine.MatchString(line):
		return kindBullet
	}
	return kindParagraph
}

// isBookingLine reports whether a line is mainly a tour-booking link.
func isBookingLine(line string) bool {
	m := markdownURL.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	lower := strings.ToLower(line)
	return strings.Contains(lower, "[book") || strings.Contains(lower, "book tour") ||
		strings.Contains(m[1], "viator.com") || strings.Contains(strings.ToLower(m[1]), "tour")
}

func stripMarkers(line string) string {
	line = strings.TrimLeft(strings.TrimSpace(line), "# ")
	line = strings.ReplaceAll(line, "*", "")
	return strings.Trim(line, "_ ")
}

type Renderer struct {
	brand string
}

func NewRenderer(brand string) *Renderer {
	return &Renderer{brand: brand}
}

// Render lays out text. Day headings that mention one of cities link to that
// city's tour search.
func (r *Renderer) Render(title, text string, cities []string, links affiliate.Links) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 22, 15)
	doc.SetAutoPageBreak(true, 18)
	doc.AliasNbPages("")
	doc.SetTitle(sanitize(title), false)
	doc.SetAuthor(sanitize(r.brand), false)

	header := sanitize(title)
	footer := sanitize(r.brand)
	doc.SetHeaderFunc(func() {
		doc.SetY(8)
		doc.SetFont(fontFamily, "B", 9)
		doc.SetTextColor(90, 90, 90)
		doc.CellFormat(0, 6, header, "", 1, "C", false, 0, "")
		doc.SetTextColor(0, 0, 0)
		doc.SetY(22)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-13)
		doc.SetFont(fontFamily, "I", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 6, fmt.Sprintf("%s - Page %d/{nb}", footer, doc.PageNo()), "", 0, "C", false, 0, "")
		doc.SetTextColor(0, 0, 0)
	})

	doc.AddPage()
	w := &writer{doc: doc, cities: cities, links: links}

	titleSeen := false
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		kind := classify(line, titleSeen)
		switch kind {
		case kindBlank:
			doc.Ln(2.5)
		case kindTitle:
			titleSeen = true
			w.title(line)
		case kindDayHeading:
			w.dayHeading(line)
		case kindRule:
			w.rule()
		case kindBooking:
			w.booking(line)
		case kindBullet:
			w.bullet(bulletLine.ReplaceAllString(line, ""))
		default:
			w.paragraph(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	doc    *fpdf.Fpdf
	cities []string
	links  affiliate.Links
}

func (w *writer) title(line string) {
	w.doc.Ln(2)
	w.doc.SetFont(fontFamily, "B", 16)
	w.doc.MultiCell(0, 8, sanitize(stripMarkers(line)), "", "C", false)
	w.doc.Ln(3)
}

func (w *writer) dayHeading(line string) {
	heading := stripMarkers(line)
	link := ""
	if city := w.cityIn(heading); city != "" {
		link = w.links.TourSearch(city)
	}

	w.doc.Ln(2)
	w.doc.SetFont(fontFamily, "B", 12)
	w.doc.SetFillColor(226, 239, 232)
	w.doc.SetTextColor(20, 70, 50)
	w.doc.CellFormat(0, 8, " "+sanitize(heading), "", 1, "L", true, 0, link)
	w.doc.SetTextColor(0, 0, 0)
	w.doc.Ln(1)
}

func (w *writer) cityIn(heading string) string {
	lower := strings.ToLower(heading)
	for _, c := range w.cities {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

func (w *writer) rule() {
	left, _, right, _ := w.doc.GetMargins()
	pageW, _ := w.doc.GetPageSize()
	y := w.doc.GetY() + 2
	w.doc.SetDrawColor(180, 180, 180)
	w.doc.Line(left, y, pageW-right, y)
	w.doc.Ln(5)
}

func (w *writer) booking(line string) {
	w.indented(bulletIndent, func() {
		w.inline(bulletLine.ReplaceAllString(line, ""), true)
	})
}

func (w *writer) bullet(line string) {
	w.indented(bulletIndent, func() {
		w.doc.SetFont(fontFamily, "", bodySize)
		w.doc.Write(lineHeight, "\x95 ")
		w.inline(line, false)
	})
}

func (w *writer) paragraph(line string) {
	w.inline(line, false)
}

func (w *writer) indented(by float64, fn func()) {
	left, _, _, _ := w.doc.GetMargins()
	w.doc.SetLeftMargin(left + by)
	w.doc.SetX(left + by)
	fn()
	w.doc.SetLeftMargin(left)
}

// inline writes one logical line of styled segments and ends the line.
func (w *writer) inline(line string, emphasizeLinks bool) {
	for _, seg := range parseInline(strings.TrimSpace(line)) {
		style := ""
		if seg.Bold || (emphasizeLinks && seg.URL != "") {
			style = "B"
		}
		txt := sanitize(seg.Text)
		if txt == "" {
			continue
		}
		if seg.URL != "" {
			w.doc.SetFont(fontFamily, style+"U", bodySize)
			w.doc.SetTextColor(20, 80, 200)
			w.doc.WriteLinkString(lineHeight, txt, seg.URL)
			w.doc.SetTextColor(0, 0, 0)
			continue
		}
		w.doc.SetFont(fontFamily, style, bodySize)
		w.doc.Write(lineHeight, txt)
	}
	w.doc.Ln(lineHeight)
}
