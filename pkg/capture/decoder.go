package capture

import (
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	multiqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrDamagedCode reports a QR code that was located in the frame but could
// not be read, for instance a creased or partly covered badge.
var ErrDamagedCode = errors.New("qr code found but unreadable")

// Decoder extracts zero or more QR payloads from a frame.
type Decoder interface {
	Decode(frame Frame) ([]string, error)
}

// QRDecoder decodes QR codes with gozxing.
type QRDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewQRDecoder builds a decoder that tries harder on low contrast frames.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{hints: map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER:    true,
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}}
}

// Decode returns every payload found in the frame, one per badge. A frame
// without any code yields no payloads and no error; a frame whose only codes
// are unreadable yields ErrDamagedCode.
func (d *QRDecoder) Decode(frame Frame) ([]string, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("frame %s has no image", frame.Source)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame.Image)
	if err != nil {
		return nil, fmt.Errorf("binarize frame %s: %w", frame.Source, err)
	}

	results, err := multiqr.NewQRCodeMultiReader().DecodeMultiple(bmp, d.hints)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("decode frame %s: %w", frame.Source, err)
	}
	if len(results) > 0 {
		payloads := make([]string, 0, len(results))
		for _, r := range results {
			payloads = append(payloads, r.GetText())
		}
		return payloads, nil
	}

	// The multi reader skips codes it cannot decode. The single reader tells
	// an empty frame apart from a damaged badge.
	result, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	switch {
	case err == nil:
		return []string{result.GetText()}, nil
	case isNotFound(err):
		return nil, nil
	default:
		return nil, fmt.Errorf("frame %s: %w: %v", frame.Source, ErrDamagedCode, err)
	}
}

func isNotFound(err error) bool {
	var nf gozxing.NotFoundException
	return errors.As(err, &nf)
}
