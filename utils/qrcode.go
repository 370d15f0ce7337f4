package utils

import (
	"encoding/base64"
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCodeSize is the edge length in pixels of rendered codes.
const QRCodeSize = 300

// QRCodeDataURL renders content as a PNG QR code and returns it as a data URL.
func QRCodeDataURL(content string) (string, error) {
	if content == "" {
		return "", errors.New("empty qr content")
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", err
	}
	png, err := q.PNG(QRCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
