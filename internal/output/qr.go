package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// ErrEmptyQRData is returned when there is nothing to encode.
var ErrEmptyQRData = errors.New("qr: nothing to encode")

// QRConfig controls terminal QR rendering.
type QRConfig struct {
	Level      qr.Level
	QuietZone  int
	HalfBlocks bool
}

// DefaultQRConfig returns the settings used for link URLs: medium error
// correction and half-height blocks so a full URL fits an 80 column terminal.
func DefaultQRConfig() QRConfig {
	return QRConfig{Level: qr.M, QuietZone: 1, HalfBlocks: true}
}

// CanRenderQR reports whether w is a terminal.
func CanRenderQR(w io.Writer) bool {
	return isTerminal(w)
}

// RenderQR draws data, usually a link URL, as a QR code so the session can
// be opened on a phone. Data that cannot be encoded at cfg.Level is an error
// even when w is not a terminal; otherwise non-terminals get no output.
func RenderQR(w io.Writer, data string, cfg QRConfig) error {
	if data == "" {
		return ErrEmptyQRData
	}
	if _, err := qr.Encode(data, cfg.Level); err != nil {
		return fmt.Errorf("encoding QR code: %w", err)
	}
	if !CanRenderQR(w) {
		return nil
	}

	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          cfg.Level,
		Writer:         w,
		QuietZone:      cfg.QuietZone,
		HalfBlocks:     cfg.HalfBlocks,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return nil
}
