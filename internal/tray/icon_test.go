package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIconIsICOWrappedPNG(t *testing.T) {
	ico := generateIcon()
	require.Greater(t, len(ico), 22)

	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(ico[0:2]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[2:4]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(ico[4:6]))
	assert.Equal(t, byte(iconSize), ico[6])

	size := binary.LittleEndian.Uint32(ico[14:18])
	offset := binary.LittleEndian.Uint32(ico[18:22])
	require.Equal(t, uint32(22), offset)
	require.Equal(t, int(offset+size), len(ico))

	img, err := png.Decode(bytes.NewReader(ico[offset:]))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())
}

func TestBrowserURL(t *testing.T) {
	assert.Equal(t, "http://localhost:18800", BrowserURL("0.0.0.0:18800"))
	assert.Equal(t, "http://127.0.0.1:18800", BrowserURL("127.0.0.1:18800"))
	assert.Equal(t, "http://localhost:8080", BrowserURL(":8080"))
	assert.Equal(t, "http://localhost:9000", BrowserURL("[::]:9000"))
}
