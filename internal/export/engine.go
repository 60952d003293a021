// Package export lays out photo entries and item lists as A4 PDF documents.
package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/vbonduro/mystuff/internal/domain"
	"github.com/vbonduro/mystuff/internal/imaging"
)

// A4 at 72 points per inch.
const (
	PageWidth  = 8.27 * 72
	PageHeight = 11.69 * 72
)

const (
	fontFamily  = "Helvetica"
	lineSpacing = 1.2

	photoTop    = 100.0
	photoMaxW   = PageWidth - 100
	photoMaxH   = PageHeight - 200
	captionGap  = 20.0
	captionSize = 14.0
	dateGap     = 10.0
	dateSize    = 12.0
	subtitleGap = 20.0

	// bottomMargin is kept clear below the date line on photo pages.
	bottomMargin = 20.0
	// maxCaptionLines caps the caption; the last kept line is ellipsized.
	maxCaptionLines = 10

	listMargin   = 50.0
	listRowH     = 20.0
	listNumberW  = 40.0
	listPriceW   = 120.0
	listContentW = PageWidth - 2*listMargin
)

const (
	longDateLayout   = "January 2, 2006 at 3:04:05 PM"
	mediumDateLayout = "Jan 2, 2006"
)

type Options struct {
	// AppName is used in the title page, document metadata and file names.
	AppName string
	// Currency is an ISO 4217 code used to display prices.
	Currency string
	Now      func() time.Time
	Location *time.Location
	Logger   *slog.Logger
}

// Engine renders documents. It holds no per-document state and is safe for
// concurrent use.
type Engine struct {
	opts Options
}

// PhotoPage pairs an entry with its resolved image bytes. A nil Image marks a
// missing blob.
type PhotoPage struct {
	Entry domain.PhotoEntry
	Image []byte
}

// Document is a complete rendered PDF.
type Document struct {
	Data  []byte
	Pages int
	// Skipped lists entries that contributed no page.
	Skipped []uuid.UUID
}

func New(opts Options) *Engine {
	if opts.AppName == "" {
		opts.AppName = "MyStuff"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if money.GetCurrency(opts.Currency) == nil {
		opts.Logger.Warn("unknown currency, falling back to USD", "currency", opts.Currency)
		opts.Currency = money.USD
	}
	return &Engine{opts: opts}
}

func (e *Engine) AppName() string { return e.opts.AppName }

// Collection renders a title page followed by one page per entry. Entries
// whose image is missing or cannot be decoded are skipped.
func (e *Engine) Collection(pages []PhotoPage) (*Document, error) {
	if len(pages) == 0 {
		return nil, &domain.ExportError{Op: "collection", Err: domain.ErrEmptyCollection}
	}

	now := e.opts.Now().In(e.opts.Location)
	pdf := e.newPDF(e.opts.AppName+" Photos", now)
	e.titlePage(pdf, now)

	doc := &Document{}
	for _, page := range pages {
		if err := e.photoPage(pdf, page); err != nil {
			e.opts.Logger.Warn("skipping export page", "entry_id", page.Entry.ID, "error", err)
			doc.Skipped = append(doc.Skipped, page.Entry.ID)
		}
	}

	return e.finish(pdf, doc, "collection")
}

// ItemList renders items as a numbered table with a total row, breaking onto
// new pages as needed.
func (e *Engine) ItemList(title string, items []domain.LineItem) (*Document, error) {
	if len(items) == 0 {
		return nil, &domain.ExportError{Op: "item list", Err: domain.ErrEmptyCollection}
	}
	if strings.TrimSpace(title) == "" {
		title = "Item Price List"
	}

	now := e.opts.Now().In(e.opts.Location)
	pdf := e.newPDF(title, now)

	pdf.AddPage()
	y := listMargin
	y += centered(pdf, y, 24, "B", title)
	y += 6
	pdf.SetTextColor(85, 85, 85)
	y += centered(pdf, y, 12, "", "Generated on "+now.Format(longDateLayout))
	pdf.SetTextColor(0, 0, 0)
	y += 20

	y = listHeader(pdf, y)
	for i, item := range items {
		if y+listRowH > PageHeight-listMargin {
			pdf.AddPage()
			y = listHeader(pdf, listMargin)
		}
		pdf.SetFont(fontFamily, "", 12)
		pdf.SetXY(listMargin, y)
		pdf.CellFormat(listNumberW, listRowH, fmt.Sprintf("%d.", i+1), "", 0, "L", false, 0, "")
		pdf.CellFormat(listContentW-listNumberW-listPriceW, listRowH, truncate(pdf, encode(item.Name), listContentW-listNumberW-listPriceW), "", 0, "L", false, 0, "")
		pdf.CellFormat(listPriceW, listRowH, encode(e.FormatPrice(item.Price)), "", 0, "R", false, 0, "")
		y += listRowH
	}

	if y+listRowH > PageHeight-listMargin {
		pdf.AddPage()
		y = listMargin
	}
	pdf.SetFont(fontFamily, "B", 12)
	pdf.SetXY(listMargin, y)
	pdf.CellFormat(listContentW-listPriceW, listRowH, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(listPriceW, listRowH, encode(e.FormatPrice(domain.TotalPrice(items))), "T", 0, "R", false, 0, "")

	return e.finish(pdf, &Document{}, "item list")
}

// FormatPrice displays amount in the configured currency with two fraction
// digits.
func (e *Engine) FormatPrice(amount decimal.Decimal) string {
	return FormatMoney(amount, e.opts.Currency)
}

// FormatMoney displays amount in currency with two fraction digits.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		cur = money.GetCurrency(money.USD)
	}
	f := cur.Formatter()
	f.Fraction = 2
	return f.Format(amount.Shift(2).Round(0).IntPart())
}

func (e *Engine) newPDF(title string, now time.Time) *fpdf.Fpdf {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator(encode(e.opts.AppName+" App"), false)
	pdf.SetAuthor(encode(e.opts.AppName+" User"), false)
	pdf.SetTitle(encode(title), false)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetCatalogSort(true)
	return pdf
}

func (e *Engine) titlePage(pdf *fpdf.Fpdf, now time.Time) {
	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)
	y := PageHeight / 3
	y += centered(pdf, y, 36, "B", e.opts.AppName)

	pdf.SetTextColor(85, 85, 85)
	centered(pdf, y+subtitleGap, 18, "", "Photo Collection")
	centered(pdf, PageHeight-100, 14, "", "Generated on "+now.Format(longDateLayout))
	pdf.SetTextColor(0, 0, 0)
}

func (e *Engine) photoPage(pdf *fpdf.Fpdf, page PhotoPage) error {
	if len(page.Image) == 0 {
		return fmt.Errorf("image %s: %w", page.Entry.ImageRef, domain.ErrNotFound)
	}
	info, err := imaging.Inspect(page.Image)
	if err != nil {
		return err
	}
	data := page.Image
	if info.Format != "jpeg" {
		if data, err = imaging.NormalizeJPEG(page.Image); err != nil {
			return err
		}
	}

	name := page.Entry.ID.String()
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		return fmt.Errorf("register image: %w", err)
	}

	lines := captionLines(pdf, page.Entry.Caption)
	w, h := scaleToFit(float64(info.Width), float64(info.Height), photoMaxW, photoMaxHeight(len(lines)))

	pdf.AddPage()
	pdf.ImageOptions(name, (PageWidth-w)/2, photoTop, w, h, false, opts, 0, "")

	y := photoTop + h + captionGap
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(fontFamily, "", captionSize)
	for _, line := range lines {
		pdf.SetXY(0, y)
		pdf.CellFormat(PageWidth, captionSize*lineSpacing, line, "", 0, "C", false, 0, "")
		y += captionSize * lineSpacing
	}

	pdf.SetTextColor(85, 85, 85)
	centered(pdf, y+dateGap, dateSize, "", page.Entry.CreatedAt.In(e.opts.Location).Format(mediumDateLayout))
	pdf.SetTextColor(0, 0, 0)
	return nil
}

// captionLines wraps caption to the photo width in the caption font, dropping
// blank lines. At most maxCaptionLines are returned.
func captionLines(pdf *fpdf.Fpdf, caption string) []string {
	pdf.SetFont(fontFamily, "", captionSize)
	var lines []string
	for _, l := range pdf.SplitLines([]byte(encode(caption)), photoMaxW) {
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	if len(lines) <= maxCaptionLines {
		return lines
	}
	rest := strings.Join(lines[maxCaptionLines-1:], " ")
	lines = lines[:maxCaptionLines]
	lines[maxCaptionLines-1] = truncate(pdf, rest, photoMaxW)
	return lines
}

// photoMaxHeight is the tallest image that leaves room below it for n caption
// lines and the date.
func photoMaxHeight(n int) float64 {
	below := captionGap + float64(n)*captionSize*lineSpacing + dateGap + dateSize*lineSpacing + bottomMargin
	return min(photoMaxH, PageHeight-photoTop-below)
}

func (e *Engine) finish(pdf *fpdf.Fpdf, doc *Document, op string) (*Document, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &domain.ExportError{Op: op, Err: err}
	}
	doc.Data = buf.Bytes()
	doc.Pages = pdf.PageCount()
	return doc, nil
}

// scaleToFit scales w x h uniformly into maxW x maxH without enlarging it.
func scaleToFit(w, h, maxW, maxH float64) (float64, float64) {
	scale := min(maxW/w, maxH/h, 1)
	return w * scale, h * scale
}

// centered draws one line of text centered across the page with its top at y
// and returns the line height.
func centered(pdf *fpdf.Fpdf, y, size float64, style, text string) float64 {
	h := size * lineSpacing
	pdf.SetFont(fontFamily, style, size)
	pdf.SetXY(0, y)
	pdf.CellFormat(PageWidth, h, encode(text), "", 0, "C", false, 0, "")
	return h
}

func listHeader(pdf *fpdf.Fpdf, y float64) float64 {
	pdf.SetFont(fontFamily, "B", 12)
	pdf.SetXY(listMargin, y)
	pdf.CellFormat(listNumberW, listRowH, "#", "B", 0, "L", false, 0, "")
	pdf.CellFormat(listContentW-listNumberW-listPriceW, listRowH, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(listPriceW, listRowH, "Price", "B", 0, "R", false, 0, "")
	return y + listRowH
}

// truncate shortens an already encoded string to fit w at the current font.
func truncate(pdf *fpdf.Fpdf, s string, w float64) string {
	const ellipsis = "..."
	limit := w - 4
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+ellipsis) > limit {
		s = s[:len(s)-1]
	}
	return s + ellipsis
}

// encode converts text to the Windows-1252 bytes the core fonts expect.
// Characters outside that code page become '?'.
func encode(s string) string {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	out, err := enc.String(norm.NFC.String(s))
	if err != nil {
		return strings.Repeat("?", len([]rune(s)))
	}
	return strings.ReplaceAll(out, "\x1a", "?")
}
