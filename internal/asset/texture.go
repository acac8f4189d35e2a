package asset

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/chai2010/tiff"
	mst "github.com/flywave/go-mst"
	"golang.org/x/image/bmp"
)

// LoadTexture reads an image file referenced by a material and converts it
// into the zlib-compressed RGBA payload the MST container stores.
func LoadTexture(path string, id int) (*mst.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("sniff %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	img, err := decodeImage(f, format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	tex := textureFromImage(img)
	tex.Id = int32(id)
	return tex, nil
}

// textureFromReader decodes an image stream of any supported format.
// glTF materials embed their textures in the buffer instead of referencing
// files, which is where the reader comes from.
func textureFromReader(r io.Reader) (*mst.Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return textureFromImage(img), nil
}

func textureFromImage(img image.Image) *mst.Texture {
	bd := img.Bounds()
	buf := make([]byte, 0, bd.Dx()*bd.Dy()*4)
	for y := 0; y < bd.Dy(); y++ {
		for x := 0; x < bd.Dx(); x++ {
			r, g, b, a := color.RGBAModel.Convert(img.At(bd.Min.X+x, bd.Min.Y+y)).RGBA()
			buf = append(buf, byte(r&0xff), byte(g&0xff), byte(b&0xff), byte(a&0xff))
		}
	}
	return &mst.Texture{
		Format:     mst.TEXTURE_FORMAT_RGBA,
		Size:       [2]uint64{uint64(bd.Dx()), uint64(bd.Dy())},
		Compressed: mst.TEXTURE_COMPRESSED_ZLIB,
		Data:       mst.CompressImage(buf),
	}
}

func decodeImage(rd io.Reader, format string) (image.Image, error) {
	switch format {
	case "jpeg", "jpg":
		return jpeg.Decode(rd)
	case "png":
		return png.Decode(rd)
	case "gif":
		return gif.Decode(rd)
	case "bmp":
		return bmp.Decode(rd)
	case "tif", "tiff":
		return tiff.Decode(rd)
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
}
