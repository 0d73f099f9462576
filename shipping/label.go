package shipping

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"nongxian/apperr"
	"nongxian/mailer"
	"nongxian/models"
)

// Label renders an A6 shipping label with a QR code of the tracking URL.
// Without a CJK font, text is limited to what the core fonts can encode.
func (s *Service) Label(o models.Order) ([]byte, error) {
	return renderLabel(o, s.font)
}

func renderLabel(o models.Order, fontPath string) ([]byte, error) {
	info := o.ShippingInfo
	if info == nil {
		return nil, apperr.ValidationError("訂單尚未出貨，無法列印標籤")
	}

	qrPayload := info.TrackingURL
	if qrPayload == "" {
		qrPayload = info.TrackingNumber
	}
	qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
	if err != nil {
		return nil, apperr.InternalError("QR code 產生失敗", err)
	}

	pdf := gofpdf.New("P", "mm", "A6", "")
	font := "Arial"
	tr := func(s string) string { return s }
	if fontPath != "" {
		pdf.AddUTF8Font("label", "", fontPath)
		font = "label"
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()

	pdf.SetFont(font, "", 16)
	pdf.Cell(0, 8, tr(o.ID))
	pdf.Ln(10)

	pdf.SetFont(font, "", 10)
	lines := []string{
		fmt.Sprintf("Carrier: %s %s", info.Carrier, labelText(info.CarrierName, fontPath)),
		fmt.Sprintf("Tracking: %s", info.TrackingNumber),
		fmt.Sprintf("Shipped: %s", info.ShippedDate.Format("2006-01-02")),
		"",
		fmt.Sprintf("To: %s", labelText(o.ShippingAddress.Recipient, fontPath)),
		fmt.Sprintf("Tel: %s", o.ShippingAddress.Phone),
		labelText(mailer.FormatAddress(o.ShippingAddress), fontPath),
		"",
		fmt.Sprintf("Items: %d", itemCount(o.Items)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 64, 100, 36, 36, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperr.InternalError("標籤產生失敗", err)
	}
	return buf.Bytes(), nil
}

// labelText drops characters the core fonts cannot draw.
func labelText(s, fontPath string) string {
	if fontPath != "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r > 0xFF {
			return -1
		}
		return r
	}, s)
}

func itemCount(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
