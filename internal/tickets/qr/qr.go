package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// Generator renders ticket credentials as QR PNG images.
type Generator struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewGenerator() *Generator {
	return &Generator{Size: DefaultSize, Level: qrcode.Medium}
}

// PNG encodes the ticket seed unchanged, since the seed itself is the
// credential the scanner submits.
func (g *Generator) PNG(seed string) ([]byte, error) {
	if seed == "" {
		return nil, fmt.Errorf("empty ticket seed")
	}
	png, err := qrcode.Encode(seed, g.Level, g.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
