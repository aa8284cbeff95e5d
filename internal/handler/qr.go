package handler

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// qrPNG renders content as a PNG QR code
func qrPNG(content string) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}
	return png, nil
}

// qrBase64 renders content as a base64 PNG QR code
func qrBase64(content string) (string, error) {
	png, err := qrPNG(content)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
