package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

type fakeEngine struct {
	text string
	err  error
	got  Input
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, in Input) (Result, error) {
	f.got = in
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Text: f.text, Confidence: 0.9}, nil
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizePassesPNGThrough(t *testing.T) {
	data := encodePNG(t, testImage(20, 10))
	out, format, err := Normalize(data, 1000)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	assert.Equal(t, data, out)
}

func TestNormalizeConvertsBMPAndGIF(t *testing.T) {
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, testImage(8, 8)))
	out, format, err := Normalize(bmpBuf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)

	var gifBuf bytes.Buffer
	require.NoError(t, gif.Encode(&gifBuf, testImage(5, 4), nil))
	_, format, err = Normalize(gifBuf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)
}

func TestNormalizeRejectsLargeAndGarbage(t *testing.T) {
	_, _, err := Normalize(encodePNG(t, testImage(100, 100)), 5000)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, _, err = Normalize([]byte("definitely not an image"), 0)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestServiceExtract(t *testing.T) {
	eng := &fakeEngine{text: "  Essay 3  \r\n\r\n\r\nDue Friday   \n"}
	svc := NewService(eng, nil, 0)

	res, err := svc.Extract(context.Background(), encodePNG(t, testImage(10, 10)))
	require.NoError(t, err)
	assert.Equal(t, "Essay 3\n\nDue Friday", res.Text)
	assert.Equal(t, []string{"eng"}, eng.got.Languages)
	assert.Equal(t, FormatPNG, eng.got.Format)
	assert.Equal(t, "fake", svc.EngineName())
}

func TestServiceExtractWrapsEngineErrors(t *testing.T) {
	svc := NewService(&fakeEngine{err: errors.New("tessdata missing")}, []string{"spa"}, 0)
	_, err := svc.Extract(context.Background(), encodePNG(t, testImage(10, 10)))
	assert.ErrorIs(t, err, ErrExtractFailed)
	assert.Contains(t, err.Error(), "tessdata missing")

	_, err = NewService(nil, nil, 0).Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoEngine)
}
