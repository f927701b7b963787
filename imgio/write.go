package imgio

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/terminus-geospatial/timage"
	"golang.org/x/sync/errgroup"
)

// writeConcurrency bounds how many blocks are rasterized at once during a
// whole-image write. Writes to the resource are serialized by the driver
// itself; only the rasterization fans out.
const writeConcurrency = 4

// WriteImage rasterizes a view into a write resource, one block at a time
// using the resource's preferred block size (or a single block when the
// resource is not block-capable). Blocks cover the view in row-major order.
//
// The progress reporter receives per-block completion; when it requests an
// abort the write stops between blocks with ErrAborted. Regions already
// written stay written.
func WriteImage[P any](res WriteResource, img timage.Image[P], progress Progress) error {
	if progress == nil {
		progress = NopProgress()
	}
	if img.Cols() == 0 || img.Rows() == 0 || img.Planes() == 0 {
		return fmt.Errorf("%w: cannot write an empty image", timage.ErrUninitialized)
	}
	progress.Report(0)
	if progress.Aborted() {
		return timage.ErrAborted
	}

	cols, rows := img.Cols(), img.Rows()
	blockW, blockH := cols, rows
	if res.HasBlockWrite() {
		blockW, blockH = res.BlockWriteSize()
	}
	blocks := timage.Rect{Width: cols, Height: rows}.Subdivide(blockW, blockH)
	timage.Logger().Debug("writing image", slog.Int("blocks", len(blocks)))

	writeBlock := func(bbox timage.Rect) error {
		mem := &timage.MemoryImage[P]{}
		if err := img.Rasterize(mem, bbox); err != nil {
			return fmt.Errorf("rasterizing block %+v: %w", bbox, err)
		}
		if err := res.Write(mem.Buffer(), bbox); err != nil {
			return fmt.Errorf("writing block %+v: %w", bbox, err)
		}
		return nil
	}

	if len(blocks) == 1 {
		if err := writeBlock(blocks[0]); err != nil {
			return err
		}
		progress.Finish()
		return res.Flush()
	}

	var g errgroup.Group
	g.SetLimit(writeConcurrency)
	for i, bbox := range blocks {
		if progress.Aborted() {
			if err := g.Wait(); err != nil {
				return err
			}
			return timage.ErrAborted
		}
		progress.Report(float64(i) / float64(len(blocks)))
		bbox := bbox
		g.Go(func() error { return writeBlock(bbox) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	progress.Finish()
	return res.Flush()
}

// WriteImageFile writes a view to the file at path, selecting a driver from
// the registry. When path contains a "*", one file is written per plane with
// the 0-based plane index substituted for the star.
//
// Pass nil for mgr to use the default driver manager and nil for progress to
// disable reporting.
func WriteImageFile[P any](path string, img timage.Image[P], options map[string]string, mgr *DriverManager, progress Progress) error {
	if mgr == nil {
		mgr = DefaultManager()
	}

	mem, err := timage.Materialize(img)
	if err != nil {
		return err
	}
	format := mem.Format()

	if strings.Contains(path, "*") {
		for p := 0; p < mem.Planes(); p++ {
			name := replaceLast(path, "*", strconv.Itoa(p))
			planeFormat := format
			planeFormat.Planes = 1
			res, err := mgr.PickWriteDriver(name, planeFormat, options, 0, 0)
			if err != nil {
				return err
			}
			if err := WriteImage[P](res, timage.SelectPlane[P](mem, p), progress); err != nil {
				return fmt.Errorf("writing plane %d to %q: %w", p, name, err)
			}
		}
		return nil
	}

	res, err := mgr.PickWriteDriver(path, format, options, 0, 0)
	if err != nil {
		return err
	}
	if err := WriteImage[P](res, mem, progress); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

func replaceLast(s, old, new string) string {
	i := strings.LastIndex(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}
