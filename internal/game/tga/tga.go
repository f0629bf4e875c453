// Package tga reads and writes uncompressed 8-bit grayscale TGA images,
// the raw form of island depth grids.
package tga

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Image type codes from the TGA header.
const (
	typeGrayscale = 3
	headerSize    = 18
)

// descriptor written for every image: 8 attribute bits, bottom-left origin.
// Readers of depth grids treat rows in file order regardless of origin.
const descriptor = 8

var ErrUnsupported = errors.New("unsupported tga image")

// Image is a grayscale raster stored row-major, one byte per pixel.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// header mirrors the 18-byte TGA file header.
type header struct {
	IDLength     uint8
	ColorMapType uint8
	ImageType    uint8
	ColorMap     [5]uint8
	XOrigin      uint16
	YOrigin      uint16
	Width        uint16
	Height       uint16
	PixelDepth   uint8
	Descriptor   uint8
}

// Read decodes an uncompressed 8 bpp grayscale image. Color-mapped, true
// color and RLE images are rejected with ErrUnsupported.
func Read(r io.Reader) (*Image, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading tga header: %w", err)
	}
	if h.ImageType != typeGrayscale || h.ColorMapType != 0 || h.PixelDepth != 8 {
		return nil, fmt.Errorf("%w: type %d, color map %d, depth %d", ErrUnsupported, h.ImageType, h.ColorMapType, h.PixelDepth)
	}
	if h.IDLength > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(h.IDLength)); err != nil {
			return nil, fmt.Errorf("skipping tga image id: %w", err)
		}
	}

	img := &Image{
		Width:  int(h.Width),
		Height: int(h.Height),
		Pix:    make([]byte, int(h.Width)*int(h.Height)),
	}
	if _, err := io.ReadFull(r, img.Pix); err != nil {
		return nil, fmt.Errorf("reading tga pixels: %w", err)
	}
	return img, nil
}

// ReadFile reads the image stored at path.
func ReadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Write encodes img as an uncompressed 8 bpp grayscale TGA.
func Write(w io.Writer, img *Image) error {
	if img.Width <= 0 || img.Height <= 0 || img.Width > 0xFFFF || img.Height > 0xFFFF {
		return fmt.Errorf("%w: %dx%d", ErrUnsupported, img.Width, img.Height)
	}
	if len(img.Pix) != img.Width*img.Height {
		return fmt.Errorf("tga: %d pixels for %dx%d image", len(img.Pix), img.Width, img.Height)
	}

	h := header{
		ImageType:  typeGrayscale,
		Width:      uint16(img.Width),
		Height:     uint16(img.Height),
		PixelDepth: 8,
		Descriptor: descriptor,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("writing tga header: %w", err)
	}
	if _, err := w.Write(img.Pix); err != nil {
		return fmt.Errorf("writing tga pixels: %w", err)
	}
	return nil
}

// WriteFile writes img to path, replacing any existing file.
func WriteFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, img); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
