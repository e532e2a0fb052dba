package pdf

import (
	"bytes"
	"fmt"
	"image/png"

	"ms-boxoffice/internal/tickets"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	regular = "goregular"
	bold    = "gobold"
	qrSize  = 200.0
)

type QRGenerator interface {
	PNG(seed string) ([]byte, error)
}

// Renderer produces the printable ticket download: one A4 page per ticket
// with the holder's name and QR code.
type Renderer struct {
	QR QRGenerator
}

func NewRenderer(qr QRGenerator) *Renderer {
	return &Renderer{QR: qr}
}

func (r *Renderer) Render(list []tickets.OrderTicket) ([]byte, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("no tickets to render")
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFontData(regular, goregular.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.AddTTFFontData(bold, gobold.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	for _, t := range list {
		if err := r.page(pdf, t); err != nil {
			return nil, fmt.Errorf("ticket %s: %w", t.ID, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) page(pdf *gopdf.GoPdf, t tickets.OrderTicket) error {
	pdf.AddPage()

	if err := pdf.SetFont(bold, "", 20); err != nil {
		return err
	}
	if err := centered(pdf, 57, t.EventName+" - Ticket"); err != nil {
		return err
	}

	if err := pdf.SetFont(regular, "", 14); err != nil {
		return err
	}
	if err := centered(pdf, 97, fmt.Sprintf("for %s %s", t.FirstName, t.LastName)); err != nil {
		return err
	}
	if err := centered(pdf, 120, fmt.Sprintf("%s admission, %s", t.AdmissionTier, t.EventDate.Format("Mon Jan 2, 2006"))); err != nil {
		return err
	}

	code, err := r.QR.PNG(t.QRPayload)
	if err != nil {
		return err
	}
	img, err := png.Decode(bytes.NewReader(code))
	if err != nil {
		return fmt.Errorf("decode qr: %w", err)
	}
	x := (gopdf.PageSizeA4.W - qrSize) / 2
	return pdf.ImageFrom(img, x, 160, &gopdf.Rect{W: qrSize, H: qrSize})
}

func centered(pdf *gopdf.GoPdf, y float64, text string) error {
	pdf.SetXY(0, y)
	return pdf.CellWithOption(&gopdf.Rect{W: gopdf.PageSizeA4.W, H: 20}, text, gopdf.CellOption{Align: gopdf.Center})
}
