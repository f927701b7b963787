// Package webpdrv registers a WebP driver with the imgio registry, backed
// by github.com/gen2brain/webp. Import it for its side effect:
//
//	import _ "github.com/terminus-geospatial/timage/imgio/webpdrv"
package webpdrv

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/webp"
	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
)

func init() {
	imgio.Register(Factory{})
}

// Factory creates WebP resources.
type Factory struct{}

func (Factory) Name() string { return "webp" }

func (Factory) IsReadSupported(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".webp") {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 12)
	if _, err := f.Read(head); err != nil {
		return false
	}
	return bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

func (Factory) IsWriteSupported(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".webp")
}

func (Factory) CreateReadDriver(path string) (imgio.ReadResource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", timage.ErrFileIO, path, err)
	}
	defer f.Close()
	img, err := webp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %v", timage.ErrFileIO, path, err)
	}
	native, err := imgio.BufferFromStdImage(img)
	if err != nil {
		return nil, err
	}
	return &imgio.DecodedReader{Native: native, Rescale: imgio.DefaultRescale()}, nil
}

func (Factory) CreateWriteDriver(path string, format timage.ImageFormat, options map[string]string, blockW, blockH int) (imgio.WriteResource, error) {
	// WebP stores 8-bit RGBA only.
	native := timage.NewImageFormat(format.Cols, format.Rows, timage.FormatRGBA, timage.ChannelU8)
	return &imgio.EncodeSink{
		Native:  timage.AllocateBuffer(native),
		Rescale: imgio.DefaultRescale(),
		Encode: func(img image.Image) error {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("%w: creating %q: %v", timage.ErrFileIO, path, err)
			}
			defer f.Close()
			if err := webp.Encode(f, img); err != nil {
				return fmt.Errorf("%w: encoding %q: %v", timage.ErrFileIO, path, err)
			}
			return nil
		},
	}, nil
}
