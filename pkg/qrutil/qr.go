package qrutil

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DataURL renders the given URL as a QR code PNG and returns it as a
// data: URL suitable for direct embedding in an <img> tag. size is the image
// width/height in pixels.
func DataURL(url string, size int) (string, error) {
	if url == "" {
		return "", fmt.Errorf("qrutil: empty url")
	}
	if size <= 0 {
		size = 300
	}

	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
