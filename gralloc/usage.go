package gralloc

import "fmt"

// Usage is a bitset of declared buffer-usage intents. The intents drive the
// allocation policy's choice of backing store.
type Usage uint32

const (
	// UsageHWTexture marks a buffer sampled as a texture. Texture buffers
	// prefer the primary physical pool so hardware paths can fall back to
	// them even when the primary consumer is software.
	UsageHWTexture Usage = 1 << 0

	// UsageHWRender marks a hardware render target.
	UsageHWRender Usage = 1 << 1

	// UsageHW2D marks a target of the 2D blit engine. This is the one intent
	// that strictly requires physically contiguous memory: when the pool
	// device is unavailable the request fails instead of falling back.
	UsageHW2D Usage = 1 << 2

	// UsageScanout marks a buffer read directly by the display hardware.
	// Scanout buffers come from the pre-reserved framebuffer slots.
	UsageScanout Usage = 1 << 3
)

// PixelFormat enumerates the supported buffer pixel layouts.
type PixelFormat int32

const (
	FormatRGBA8888 PixelFormat = iota + 1
	FormatRGB565
	FormatBGRA8888
	FormatRGBA5551
	FormatRGBA4444
)

// BytesPerPixel returns the storage size of one pixel, or zero for an
// unsupported format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatRGBA8888, FormatBGRA8888:
		return 4
	case FormatRGB565, FormatRGBA5551, FormatRGBA4444:
		return 2
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA8888"
	case FormatRGB565:
		return "RGB565"
	case FormatBGRA8888:
		return "BGRA8888"
	case FormatRGBA5551:
		return "RGBA5551"
	case FormatRGBA4444:
		return "RGBA4444"
	}
	return fmt.Sprintf("PixelFormat(%d)", int32(f))
}

// rowAlign is the byte alignment of each pixel row.
const rowAlign = 4

// bufferLayout computes the byte size and row stride (bytes per row) of a
// buffer. Dimensions must be positive and the format supported.
func bufferLayout(w, h int, f PixelFormat) (size int64, stride int, err error) {
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidArgument, w, h)
	}
	bpp := f.BytesPerPixel()
	if bpp == 0 {
		return 0, 0, fmt.Errorf("%w: unsupported pixel format %v", ErrInvalidArgument, f)
	}
	rowBytes := (w*bpp + rowAlign - 1) &^ (rowAlign - 1)
	return int64(rowBytes) * int64(h), rowBytes, nil
}
