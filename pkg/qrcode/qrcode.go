package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

// Prefix tags every registration payload so door scanners can tell our codes
// apart from arbitrary QR content.
const Prefix = "REG:"

const imageSize = 256

var ErrInvalidPayload = errors.New("invalid QR payload")

// Payload returns the text encoded into a registration's QR image.
func Payload(registrationID string) string {
	return Prefix + registrationID
}

// DecodePayload strips exactly the registration prefix. Anything without it
// is rejected.
func DecodePayload(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, Prefix) {
		return "", ErrInvalidPayload
	}
	id := strings.TrimPrefix(payload, Prefix)
	if id == "" {
		return "", ErrInvalidPayload
	}
	return id, nil
}

// Renderer turns text into a scannable image payload.
type Renderer interface {
	Encode(text string) (string, error)
}

type pngRenderer struct {
	level goqrcode.RecoveryLevel
	size  int
}

func NewPNGRenderer() Renderer {
	return &pngRenderer{level: goqrcode.Medium, size: imageSize}
}

// Encode renders text as a PNG and returns it as a data URL that browsers
// can put straight into an <img> tag.
func (r *pngRenderer) Encode(text string) (string, error) {
	png, err := goqrcode.Encode(text, r.level, r.size)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
