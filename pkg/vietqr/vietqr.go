// Package vietqr builds NAPAS VietQR bank transfer payloads (EMVCo merchant
// presented mode) and renders them as PNG images.
package vietqr

import (
	"fmt"
	"regexp"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	napasGUID        = "A000000727"
	serviceToAccount = "QRIBFTTA"
	currencyVND      = "704"
	countryVN        = "VN"
	defaultImageSize = 320
	maxPurposeLength = 25
)

var (
	binRe     = regexp.MustCompile(`^\d{6}$`)
	accountRe = regexp.MustCompile(`^[0-9A-Za-z]{1,19}$`)
	purposeRe = regexp.MustCompile(`[^0-9A-Za-z ]+`)
)

// Transfer describes a single bank transfer request.
type Transfer struct {
	BankBIN       string
	AccountNumber string
	Amount        int64
	Purpose       string
}

// Payload returns the EMVCo string encoded in the QR image.
func Payload(t Transfer) (string, error) {
	if !binRe.MatchString(t.BankBIN) {
		return "", fmt.Errorf("bank bin must be 6 digits")
	}
	account := strings.TrimSpace(t.AccountNumber)
	if !accountRe.MatchString(account) {
		return "", fmt.Errorf("account number is invalid")
	}
	if t.Amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	beneficiary := tlv("00", t.BankBIN) + tlv("01", account)
	merchant := tlv("00", napasGUID) + tlv("01", beneficiary) + tlv("02", serviceToAccount)

	var b strings.Builder
	b.WriteString(tlv("00", "01"))
	b.WriteString(tlv("01", "12"))
	b.WriteString(tlv("38", merchant))
	b.WriteString(tlv("53", currencyVND))
	b.WriteString(tlv("54", fmt.Sprintf("%d", t.Amount)))
	b.WriteString(tlv("58", countryVN))
	if purpose := sanitizePurpose(t.Purpose); purpose != "" {
		b.WriteString(tlv("62", tlv("08", purpose)))
	}
	b.WriteString("6304")
	b.WriteString(fmt.Sprintf("%04X", crc16(b.String())))
	return b.String(), nil
}

// PNG renders the transfer as a QR image of size pixels (0 selects the default).
func PNG(t Transfer, size int) ([]byte, error) {
	payload, err := Payload(t)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultImageSize
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// Banking apps only accept ASCII alphanumerics in the transfer note.
func sanitizePurpose(purpose string) string {
	cleaned := strings.TrimSpace(purposeRe.ReplaceAllString(purpose, ""))
	if len(cleaned) > maxPurposeLength {
		cleaned = cleaned[:maxPurposeLength]
	}
	return cleaned
}

// crc16 is CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF).
func crc16(data string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
