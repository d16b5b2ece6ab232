package farms

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agromart/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const payloadPrefix = "AGROMART"

// Signer produces and checks the payload printed in a receipt's QR code:
// AGROMART|orderId|unix|signature.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *Signer) Payload(orderID string, issued time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", payloadPrefix, orderID, issued.Unix())
	return data + "|" + s.sign(data)
}

// Verify returns the order id and issue time of a genuine payload.
func (s *Signer) Verify(payload string) (string, time.Time, bool) {
	parts := strings.Split(payload, "|")
	if len(parts) != 4 || parts[0] != payloadPrefix {
		return "", time.Time{}, false
	}
	data := strings.Join(parts[:3], "|")
	if !hmac.Equal([]byte(s.sign(data)), []byte(parts[3])) {
		return "", time.Time{}, false
	}
	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", time.Time{}, false
	}
	return parts[1], time.Unix(unix, 0).UTC(), true
}

func money(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}

func name(u *models.UserSummary) string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// RenderReceipt draws a one-page A4 receipt with the signed QR code.
func RenderReceipt(o models.OrderView, qrPayload string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt "+o.OrderID, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	for _, row := range [][2]string{
		{"Order", o.OrderID},
		{"Date", o.CreatedAt.UTC().Format("02 Jan 2006 15:04 MST")},
		{"Farmer", name(o.Farmer)},
		{"Customer", name(o.Consumer)},
		{"Status", string(o.Status)},
		{"Payment", fmt.Sprintf("%s (%s)", strings.ToUpper(string(o.PaymentMethod)), o.PaymentStatus)},
	} {
		pdf.CellFormat(30, 7, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(90, 7, row[1], "", 1, "L", false, 0, "")
	}

	addr := o.ShippingAddress
	pdf.Ln(3)
	pdf.MultiCell(110, 6, fmt.Sprintf("Ship to: %s, %s\n%s %s\n%s - %s",
		addr.FullName, addr.Phone, addr.Address, addr.Area, addr.City, addr.PinCode), "", "L", false)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 25, 40, 40, false, imageOpts, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 11)
	widths := []float64{80, 30, 25, 35}
	for i, h := range []string{"Item", "Price", "Qty", "Subtotal"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 11)
	for _, it := range o.Items {
		label := it.Name
		if it.Unit != "" {
			label += " (" + it.Unit + ")"
		}
		pdf.CellFormat(widths[0], 7, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, money(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, strconv.Itoa(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(it.Price*float64(it.Quantity)), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	for _, row := range [][2]string{
		{"Items total", money(o.TotalAmount)},
		{"Delivery", money(o.DeliveryCharge)},
		{"Grand total", money(o.TotalAmount + o.DeliveryCharge)},
	} {
		pdf.CellFormat(135, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, row[1], "", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
