package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// 作品集图片的最大宽度，超过则等比缩小。
	maxAssetWidth = 1600
	// 解码前按头信息限制尺寸。
	maxAssetSide   = 10000
	maxAssetPixels = 40_000_000
)

var errImageTooLarge = errors.New("image dimensions too large")

var resizableFormats = map[string]imaging.Format{
	"image/png":  imaging.PNG,
	"image/jpeg": imaging.JPEG,
}

// shrinkImage 校验图片可解码，并把过宽的 png/jpeg 缩到 maxAssetWidth。
// 其他格式与未超宽的图片原样返回。
func shrinkImage(data []byte, mime string) ([]byte, error) {
	format, ok := resizableFormats[mime]
	if !ok {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 ||
		cfg.Width > maxAssetSide || cfg.Height > maxAssetSide ||
		cfg.Width*cfg.Height > maxAssetPixels {
		return nil, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() <= maxAssetWidth {
		return data, nil
	}

	img = imaging.Resize(img, maxAssetWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
