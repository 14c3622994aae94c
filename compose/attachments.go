package compose

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/beevik/etree"
	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"bxc/block"
	"bxc/utils/images"
)

// Attachment pipeline. Image payloads arrive from the editing surface as
// data URIs (or bare base64). Every exported image gets a deterministic
// name derived from the immutable block id so repeated exports stay
// diffable.

// buildFigure projects an image block into a fig subtree and registers the
// decoded payload as a package attachment.
func (p *Projector) buildFigure(parent *etree.Element, b block.Block, def block.StyleDefinition, st *walkState) {
	img, err := block.ParseImageData(b.Content)
	if err != nil {
		p.skip(st, b, err)
		return
	}

	name, data, err := p.prepareAttachment(b.ID, img)
	if err != nil {
		p.skip(st, b, err)
		return
	}

	fig := parent.CreateElement(def.Tag.Get(p.Format))
	fig.CreateAttr("id", "fig-"+strconv.Itoa(b.ID))
	if img.Caption != "" {
		fig.CreateElement("caption").CreateElement("p").SetText(img.Caption)
	}
	graphic := fig.CreateElement("graphic")
	graphic.CreateAttr("xlink:href", name)
	if img.Width > 0 {
		graphic.CreateAttr("width", strconv.Itoa(img.Width))
	}
	if img.Height > 0 {
		graphic.CreateAttr("height", strconv.Itoa(img.Height))
	}
	if img.Source != "" {
		fig.CreateElement("attrib").SetText(img.Source)
	}

	st.res.Attachments[name] = data
}

// prepareAttachment decodes, sniffs and optionally rewrites one image
// payload, returning the attachment file name and bytes.
func (p *Projector) prepareAttachment(id int, img *block.ImageData) (string, []byte, error) {
	raw, err := decodeImageSrc(img.Src)
	if err != nil {
		return "", nil, fmt.Errorf("image %d: %w", id, err)
	}

	if looksLikeSVG(raw) {
		// both schemas reference raster graphics, rasterize in place
		m, err := images.RasterizeSVG(raw, p.Images.MaxWidth)
		if err != nil {
			return "", nil, fmt.Errorf("image %d: rasterize svg: %w", id, err)
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, m, imaging.PNG); err != nil {
			return "", nil, fmt.Errorf("image %d: encode png: %w", id, err)
		}
		return attachmentName(id, "png"), buf.Bytes(), nil
	}

	kind, _ := filetype.Match(raw)
	if kind == filetype.Unknown || kind.MIME.Type != "image" {
		if !p.Images.UseBroken {
			return "", nil, fmt.Errorf("image %d: unrecognized payload", id)
		}
		p.Log.Warn("Keeping unrecognized image payload", zap.Int("id", id))
		return attachmentName(id, "bin"), raw, nil
	}

	if p.Images.Optimize && p.Images.MaxWidth > 0 {
		if data, ext, changed := p.downscale(id, raw, kind.Extension); changed {
			return attachmentName(id, ext), data, nil
		}
	}
	return attachmentName(id, kind.Extension), raw, nil
}

// downscale resizes raster images wider than the configured limit. Any
// decode or encode trouble keeps the original bytes - optimization must
// never lose an image.
func (p *Projector) downscale(id int, raw []byte, ext string) ([]byte, string, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width <= p.Images.MaxWidth {
		return nil, "", false
	}
	m, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		p.Log.Warn("Unable to decode image for downscaling, keeping original", zap.Int("id", id), zap.Error(err))
		return nil, "", false
	}
	m = imaging.Resize(m, p.Images.MaxWidth, 0, imaging.Lanczos)

	format := imaging.PNG
	switch ext {
	case "jpg", "jpeg":
		format = imaging.JPEG
	case "gif":
		format = imaging.GIF
	case "png":
		format = imaging.PNG
	default:
		// re-encode unsupported formats (webp and friends) as png
		ext = "png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, m, format); err != nil {
		p.Log.Warn("Unable to encode downscaled image, keeping original", zap.Int("id", id), zap.Error(err))
		return nil, "", false
	}
	p.Log.Debug("Downscaled image", zap.Int("id", id), zap.Int("from", cfg.Width), zap.Int("to", p.Images.MaxWidth))
	return buf.Bytes(), ext, true
}

func attachmentName(id int, ext string) string {
	return fmt.Sprintf("image-%d.%s", id, ext)
}

// decodeImageSrc accepts a data URI or bare base64 payload.
func decodeImageSrc(src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "data:") {
		comma := strings.IndexByte(src, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data uri")
		}
		meta, payload := src[5:comma], src[comma+1:]
		if !strings.HasSuffix(meta, ";base64") {
			// percent encoded text payloads are rare but legal
			return []byte(payload), nil
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data uri payload: %w", err)
		}
		return data, nil
	}
	data, err := base64.StdEncoding.DecodeString(src)
	if err != nil {
		return nil, fmt.Errorf("base64 payload: %w", err)
	}
	return data, nil
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<svg"))
}
