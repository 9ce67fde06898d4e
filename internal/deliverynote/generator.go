package deliverynote

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"storefront-checkout/internal/domain"

	"github.com/go-pdf/fpdf"
)

// Document is a rendered delivery note.
type Document struct {
	Filename string
	Data     []byte
}

// Base64 encodes the PDF for the email endpoint.
func (d *Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// WriteFile stores the PDF under dir and returns its path.
func (d *Document) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.Filename)
	if err := os.WriteFile(path, d.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Generator renders delivery notes as A4 PDFs.
type Generator struct {
	// Company is printed in the header.
	Company string
	// Now stamps the document metadata; defaults to time.Now.
	Now func() time.Time
}

func NewGenerator(company string) *Generator {
	return &Generator{Company: company, Now: time.Now}
}

// Generate renders the note for order using lines, which may come from the order
// itself or from a separate lines query.
func (g *Generator) Generate(order domain.Order, lines []domain.OrderLine, user domain.User) (*Document, error) {
	if order.ID <= 0 {
		return nil, errors.New("delivery note: order has no id")
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetCreationDate(now())
	pdf.SetModificationDate(now())
	pdf.SetTitle(fmt.Sprintf("Delivery note %d", order.ID), true)
	pdf.SetCreator(g.Company, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(g.Company), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "DELIVERY NOTE", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order no.: %d", order.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+order.Date.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+string(order.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, "Ship to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range customerBlock(user) {
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := []float64{95, 50, 35}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Product", "Color", "Quantity"} {
		align := "L"
		if i == 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	units := 0
	for _, l := range lines {
		name := l.Name
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Product #%d", l.ProductID)
		}
		color := l.Color
		if strings.TrimSpace(color) == "" {
			color = domain.DefaultColor
		}
		pdf.CellFormat(widths[0], 7, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(color), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, strconv.Itoa(l.Quantity), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
		units += l.Quantity
	}
	if len(lines) == 0 {
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "No lines", "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Units: %d", units), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total: %s €", order.Total.StringFixed(2))), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("delivery note: render: %w", err)
	}
	return &Document{Filename: Filename(order.ID), Data: buf.Bytes()}, nil
}

// Filename is the name a delivery note for orderID is saved and mailed under.
func Filename(orderID int64) string {
	return fmt.Sprintf("albaran-%d.pdf", orderID)
}

func customerBlock(u domain.User) []string {
	var out []string
	if u.Name != "" {
		out = append(out, u.Name)
	}
	if u.Address != "" {
		out = append(out, u.Address)
	}
	if cityLine := strings.TrimSpace(u.PostalCode + " " + u.City); cityLine != "" {
		out = append(out, cityLine)
	}
	if u.Phone != "" {
		out = append(out, "Phone: "+u.Phone)
	}
	if u.Email != "" {
		out = append(out, u.Email)
	}
	if len(out) == 0 {
		out = append(out, u.Username)
	}
	return out
}
