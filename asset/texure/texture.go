package texture

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/achilleasa/lumen/asset"
	"github.com/achilleasa/lumen/types"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// A texture image and its metadata. Data stores Channels bytes per texel in
// row-major order. High dynamic range images populate Radiance instead.
type Texture struct {
	Width    uint32
	Height   uint32
	Channels int

	Data     []byte
	Radiance []types.Vec3
}

// Create a new texture from a Resource.
func New(res *asset.Resource) (*Texture, error) {
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, fmt.Errorf("texture: could not read %s: %w", res.Path(), err)
	}

	tex, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture: could not decode %s: %w", res.Path(), err)
	}
	return tex, nil
}

// Decode an encoded image (png, jpeg, bmp, webp or radiance hdr). Grayscale
// images produce single channel textures and hdr images produce 3-channel
// float textures; everything else is converted to 8-bit RGBA.
func Decode(r io.Reader) (*Texture, error) {
	br := bufio.NewReader(r)
	if magic, _ := br.Peek(len(rgbeMagic)); string(magic) == rgbeMagic {
		return decodeRGBE(br)
	}

	img, _, err := image.Decode(br)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	texture := &Texture{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}

	switch t := img.(type) {
	case *image.Gray:
		texture.Channels = 1
		texture.Data = make([]byte, 0, bounds.Dx()*bounds.Dy())
		for y := 0; y < bounds.Dy(); y++ {
			rowStart := y * t.Stride
			texture.Data = append(texture.Data, t.Pix[rowStart:rowStart+bounds.Dx()]...)
		}
	default:
		// Convert to non-premultiplied rgba so color channels can be
		// copied as-is.
		rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
		texture.Channels = 4
		texture.Data = rgba.Pix
	}

	return texture, nil
}

// Convert texture data to a list of normalized RGB colors, one per texel.
func (t *Texture) Texels() ([]types.Vec3, error) {
	if t.Radiance != nil {
		return t.Radiance, nil
	}
	return ReduceToRGB(t.Data, t.Channels)
}

// Reduce raw 8-bit texel data to normalized RGB triplets. Single channel data
// is replicated to all three components while 4-channel data drops the alpha
// channel. Any other channel count yields an ErrUnsupportedAssetFormat error.
func ReduceToRGB(data []byte, channels int) ([]types.Vec3, error) {
	if channels != 1 && channels != 4 {
		return nil, fmt.Errorf("texture: %w: %d channels", asset.ErrUnsupportedAssetFormat, channels)
	}
	if len(data)%channels != 0 {
		return nil, fmt.Errorf("texture: data length %d is not a multiple of the channel count %d", len(data), channels)
	}

	texels := make([]types.Vec3, 0, len(data)/channels)
	for offset := 0; offset < len(data); offset += channels {
		if channels == 1 {
			l := float32(data[offset]) / 255.0
			texels = append(texels, types.Vec3{l, l, l})
			continue
		}

		texels = append(texels, types.Vec3{
			float32(data[offset]) / 255.0,
			float32(data[offset+1]) / 255.0,
			float32(data[offset+2]) / 255.0,
		})
	}

	return texels, nil
}
