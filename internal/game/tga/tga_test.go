package tga

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *Image {
	img := &Image{Width: w, Height: h, Pix: make([]byte, w*h)}
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	return img
}

func TestWriteReadRoundTrip(t *testing.T) {
	img := gradient(16, 8)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, img))
	assert.Equal(t, headerSize+16*8, buf.Len())

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestWriteHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, gradient(300, 2)))

	b := buf.Bytes()
	assert.Equal(t, byte(0), b[0], "id length")
	assert.Equal(t, byte(0), b[1], "color map type")
	assert.Equal(t, byte(3), b[2], "image type")
	assert.Equal(t, uint16(300), binary.LittleEndian.Uint16(b[12:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[14:]))
	assert.Equal(t, byte(8), b[16], "pixel depth")
	assert.Equal(t, byte(8), b[17], "descriptor")
}

func TestReadSkipsImageID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, gradient(4, 4)))
	b := buf.Bytes()

	withID := append([]byte(nil), b[:headerSize]...)
	withID[0] = 3
	withID = append(withID, 'a', 'b', 'c')
	withID = append(withID, b[headerSize:]...)

	got, err := Read(bytes.NewReader(withID))
	require.NoError(t, err)
	assert.Equal(t, b[headerSize:], got.Pix)
}

func TestReadRejectsUnsupported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, gradient(4, 4)))

	for name, patch := range map[string]func(b []byte){
		"rle":       func(b []byte) { b[2] = 11 },
		"truecolor": func(b []byte) { b[2] = 2 },
		"colormap":  func(b []byte) { b[1] = 1 },
		"16bpp":     func(b []byte) { b[16] = 16 },
	} {
		t.Run(name, func(t *testing.T) {
			b := append([]byte(nil), buf.Bytes()...)
			patch(b)
			_, err := Read(bytes.NewReader(b))
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, gradient(4, 4)))

	_, err := Read(bytes.NewReader(buf.Bytes()[:buf.Len()-1]))
	assert.Error(t, err)
	_, err = Read(bytes.NewReader(buf.Bytes()[:5]))
	assert.Error(t, err)
}

func TestWriteRejectsBadImage(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, &Image{Width: 0, Height: 4}))
	assert.Error(t, Write(&bytes.Buffer{}, &Image{Width: 2, Height: 2, Pix: []byte{1}}))
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Bermudes.tga")
	img := gradient(32, 32)

	require.NoError(t, WriteFile(path, img))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, got.Pix)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.tga"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
