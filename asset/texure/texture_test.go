package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/types"
)

func TestRgbaTexture(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(1, 0, color.NRGBA{0, 51, 255, 255})

	tex, err := Decode(mockImage(t, img))
	if err != nil {
		t.Fatal(err)
	}

	if tex.Width != 2 || tex.Height != 1 {
		t.Fatalf("expected tex dims to be 2x1; got %dx%d", tex.Width, tex.Height)
	}
	if tex.Channels != 4 {
		t.Fatalf("expected tex to have 4 channels; got %d", tex.Channels)
	}

	texels, err := tex.Texels()
	if err != nil {
		t.Fatal(err)
	}
	expTexels := []types.Vec3{{1, 0, 0}, {0, 0.2, 1}}
	if len(texels) != len(expTexels) {
		t.Fatalf("expected %d texels; got %d", len(expTexels), len(texels))
	}
	for index, exp := range expTexels {
		if texels[index].Sub(exp).Len() > 1e-6 {
			t.Fatalf("[texel %d] expected %v; got %v", index, exp, texels[index])
		}
	}
}

func TestGrayTexture(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 2))
	img.SetGray(0, 0, color.Gray{Y: 255})
	img.SetGray(0, 1, color.Gray{Y: 0})

	tex, err := Decode(mockImage(t, img))
	if err != nil {
		t.Fatal(err)
	}
	if tex.Channels != 1 {
		t.Fatalf("expected tex to have 1 channel; got %d", tex.Channels)
	}

	texels, err := tex.Texels()
	if err != nil {
		t.Fatal(err)
	}
	if texels[0] != (types.Vec3{1, 1, 1}) || texels[1] != (types.Vec3{}) {
		t.Fatalf("expected replicated luminance texels; got %v", texels)
	}
}

func TestUnsupportedChannelCount(t *testing.T) {
	_, err := ReduceToRGB([]byte{1, 2, 3, 4}, 2)
	if !errors.Is(err, asset.ErrUnsupportedAssetFormat) {
		t.Fatalf("expected ErrUnsupportedAssetFormat; got %v", err)
	}

	_, err = ReduceToRGB([]byte{1, 2, 3}, 3)
	if !errors.Is(err, asset.ErrUnsupportedAssetFormat) {
		t.Fatalf("expected ErrUnsupportedAssetFormat; got %v", err)
	}
}

func TestStreamHttpTexture(t *testing.T) {
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/texture.png" {
			png.Encode(w, image.NewRGBA64(image.Rect(0, 0, 1, 1)))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	imgRes, err := asset.NewResource(server.URL+"/texture.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer imgRes.Close()

	tex, err := New(imgRes)
	if err != nil {
		t.Fatal(err)
	}

	if tex.Width != 1 || tex.Height != 1 {
		t.Fatalf("expected tex dims to be 1x1; got %dx%d", tex.Width, tex.Height)
	}

	expLen := 4
	if len(tex.Data) != expLen {
		t.Fatalf("expected tex data len to be %d; got %d", expLen, len(tex.Data))
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")))
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func mockImage(t *testing.T, img image.Image) *bytes.Reader {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestRadianceTexture(t *testing.T) {
	// Flat scanlines; width < 8 can not be run-length encoded
	pixels := []byte{
		128, 64, 32, 129,
		0, 0, 0, 0,
	}
	tex, err := Decode(mockRadianceImage(2, 1, rgbeFormat, pixels))
	if err != nil {
		t.Fatal(err)
	}

	if tex.Width != 2 || tex.Height != 1 || tex.Channels != 3 {
		t.Fatalf("expected 2x1 texture with 3 channels; got %dx%d with %d channels", tex.Width, tex.Height, tex.Channels)
	}

	texels, err := tex.Texels()
	if err != nil {
		t.Fatal(err)
	}
	expTexels := []types.Vec3{{1, 0.5, 0.25}, {0, 0, 0}}
	for index, exp := range expTexels {
		if texels[index] != exp {
			t.Fatalf("[texel %d] expected %v; got %v", index, exp, texels[index])
		}
	}
}

func TestRunLengthEncodedRadianceTexture(t *testing.T) {
	var scanline []byte
	scanline = append(scanline, 2, 2, 0, 8)
	// R channel: a single run
	scanline = append(scanline, 128+8, 128)
	// G channel: literal values
	scanline = append(scanline, 8, 64, 64, 64, 64, 64, 64, 64, 64)
	// B channel: two runs
	scanline = append(scanline, 128+5, 32, 128+3, 32)
	// Exponent
	scanline = append(scanline, 128+8, 129)

	pixels := append(append([]byte{}, scanline...), scanline...)
	tex, err := Decode(mockRadianceImage(8, 2, rgbeFormat, pixels))
	if err != nil {
		t.Fatal(err)
	}

	texels, err := tex.Texels()
	if err != nil {
		t.Fatal(err)
	}
	if len(texels) != 16 {
		t.Fatalf("expected 16 texels; got %d", len(texels))
	}
	for index, texel := range texels {
		if texel != (types.Vec3{1, 0.5, 0.25}) {
			t.Fatalf("[texel %d] expected (1, 0.5, 0.25); got %v", index, texel)
		}
	}

	// Corrupt the first run so it overflows the scanline
	pixels[4] = 128 + 9
	if _, err = Decode(mockRadianceImage(8, 2, rgbeFormat, pixels)); err == nil {
		t.Fatal("expected an error for an overflowing run")
	}
}

func TestUnsupportedRadianceFormat(t *testing.T) {
	_, err := Decode(mockRadianceImage(1, 1, "FORMAT=32-bit_rle_xyze", []byte{1, 1, 1, 128}))
	if !errors.Is(err, asset.ErrUnsupportedAssetFormat) {
		t.Fatalf("expected ErrUnsupportedAssetFormat; got %v", err)
	}
}

func mockRadianceImage(width, height int, format string, pixels []byte) *bytes.Reader {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "#?RADIANCE\n%s\n\n-Y %d +X %d\n", format, height, width)
	buf.Write(pixels)
	return bytes.NewReader(buf.Bytes())
}
