package opticflow

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// RawFrameFormat describes a headerless camera dump.
type RawFrameFormat struct {
	Layout PixelLayout
	Width  int
	Height int
	// BigEndian marks RGB565 dumps whose pixel words were stored high byte
	// first, as the sensor shifts them out.
	BigEndian bool
}

// Size returns the expected byte length of one frame.
func (f RawFrameFormat) Size() int {
	return f.Width * f.Height * f.Layout.BytesPerPixel()
}

func (f RawFrameFormat) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid raw frame size %dx%d", f.Width, f.Height)
	}
	if f.Layout.BytesPerPixel() == 0 {
		return fmt.Errorf("unsupported raw frame layout %d", int(f.Layout))
	}
	return nil
}

// ReadRawFrame reads one frame from a raw dump file. The returned buffer is
// in the byte order Normalize expects.
func ReadRawFrame(path string, format RawFrameFormat) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw frame: %w", err)
	}
	defer f.Close()
	return ReadRawFrameFrom(f, format)
}

// ReadRawFrameFrom reads exactly one frame from r.
func ReadRawFrameFrom(r io.Reader, format RawFrameFormat) ([]byte, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, format.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read %dx%d %s frame: %w", format.Width, format.Height, format.Layout, err)
	}
	if format.Layout == LayoutRGB565 && format.BigEndian {
		swapRGB565(buf)
	}
	return buf, nil
}

// ReadRawFrameFromBytes is ReadRawFrameFrom for an in-memory dump. Trailing
// bytes beyond one frame are ignored.
func ReadRawFrameFromBytes(data []byte, format RawFrameFormat) ([]byte, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	if len(data) < format.Size() {
		return nil, fmt.Errorf("raw frame has %d bytes, need %d: %w", len(data), format.Size(), ErrFrameSize)
	}
	buf := make([]byte, format.Size())
	copy(buf, data)
	if format.Layout == LayoutRGB565 && format.BigEndian {
		swapRGB565(buf)
	}
	return buf, nil
}

// RGB565Words decodes little-endian pixel pairs into 16-bit words.
func RGB565Words(buf []byte) []uint16 {
	words := make([]uint16, len(buf)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(buf[2*i:])
	}
	return words
}

func swapRGB565(buf []byte) {
	for i := 0; i+1 < len(buf); i += 2 {
		binary.LittleEndian.PutUint16(buf[i:], binary.BigEndian.Uint16(buf[i:]))
	}
}
