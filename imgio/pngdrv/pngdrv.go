// Package pngdrv registers a PNG driver with the imgio registry.
// Import it for its side effect:
//
//	import _ "github.com/terminus-geospatial/timage/imgio/pngdrv"
package pngdrv

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/terminus-geospatial/timage"
	"github.com/terminus-geospatial/timage/imgio"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func init() {
	imgio.Register(Factory{})
}

// Factory creates PNG resources. Reads filter by extension and confirm by
// probing the file signature.
type Factory struct{}

func (Factory) Name() string { return "png" }

func (Factory) IsReadSupported(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, len(pngMagic))
	if _, err := f.Read(head); err != nil {
		return false
	}
	return bytes.Equal(head, pngMagic)
}

func (Factory) IsWriteSupported(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}

func (Factory) CreateReadDriver(path string) (imgio.ReadResource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %v", timage.ErrFileIO, path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
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
	native := imgio.NativeWriteFormat(format)
	native.Cols, native.Rows = format.Cols, format.Rows
	return &imgio.EncodeSink{
		Native:  timage.AllocateBuffer(native),
		Rescale: imgio.DefaultRescale(),
		Encode: func(img image.Image) error {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("%w: creating %q: %v", timage.ErrFileIO, path, err)
			}
			defer f.Close()
			if err := png.Encode(f, img); err != nil {
				return fmt.Errorf("%w: encoding %q: %v", timage.ErrFileIO, path, err)
			}
			return nil
		},
	}, nil
}
