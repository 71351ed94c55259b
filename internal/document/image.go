package document

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrInvalidImage = errors.New("invalid image")

// embeddedImage 可直接写入 word/media 的图片
type embeddedImage struct {
	data   []byte
	ext    string
	width  int
	height int
}

// 可原样嵌入的格式，其余格式重新编码为 PNG
var passthroughFormats = map[string]string{
	"png":  "png",
	"jpeg": "jpeg",
	"gif":  "gif",
}

// decodeDataURL 解析 data:<mime>;base64,<payload>
func decodeDataURL(dataURL string) (*embeddedImage, error) {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || payload == "" {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidImage)
	}
	if !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: not a base64 data URL", ErrInvalidImage)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty dimensions", ErrInvalidImage)
	}

	img := &embeddedImage{data: raw, width: cfg.Width, height: cfg.Height}
	if ext, ok := passthroughFormats[format]; ok {
		img.ext = ext
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("%w: re-encode %s: %v", ErrInvalidImage, format, err)
	}
	img.data = buf.Bytes()
	img.ext = "png"
	return img, nil
}

// emuPerPixel 96 DPI 下每像素 EMU
const emuPerPixel = 9525

// extent 按显示宽度等比缩放，返回 EMU
func (img *embeddedImage) extent(displayWidth int) (cx, cy int64) {
	h := float64(displayWidth) * float64(img.height) / float64(img.width)
	return int64(displayWidth) * emuPerPixel, int64(h+0.5) * emuPerPixel
}
