package service

import (
	"strings"

	"github.com/shinnn23/watermark-tool/internal/fonts"
	"github.com/shinnn23/watermark-tool/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// fill defaults for empty values
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}
	if req.Sort == "" {
		req.Sort = model.ByCreated
	}
	if req.Order == "" {
		req.Order = model.OrderDESC
	}

	req.Sort = strings.ToLower(strings.TrimSpace(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "batch_uid"
	case strings.Contains(req.Sort, model.ByCreated):
		req.Sort = "created_at"
	default:
		req.Sort = "created_at"
	}

	req.Order = strings.ToLower(strings.TrimSpace(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	case strings.Contains(req.Order, model.OrderDESC):
		req.Order = "DESC"
	default:
		req.Order = "DESC"
	}
}

// validateNormalizeSpec fills the spec defaults the web form may omit and
// rejects anything the compositor would refuse - so the user learns about a
// bad spec synchronously, not from a failed batch.
func (c BatchService) validateNormalizeSpec(spec *model.WatermarkSpec) error {
	if spec.Mode == "" {
		spec.Mode = model.ModeSingle
	}
	if spec.Anchor == "" && spec.Mode == model.ModeSingle {
		spec.Anchor = model.AnchorCenter
	}
	if spec.FontName == "" {
		spec.FontName = fonts.DefaultFont
	}
	if c.fonts != nil && !c.fonts.Has(spec.FontName) {
		return model.ErrUnknownFont
	}

	return spec.Compositor().Validate()
}

func validateFiles(files []model.UploadedFile) error {
	if len(files) == 0 {
		return model.ErrNoImages
	}
	for _, f := range files {
		if f.File == nil || f.Size <= 0 {
			return model.ErrEmptySource
		}
		if !model.InImageTypeMap[f.ContentType] {
			return model.ErrUnsupportedFormat
		}
	}
	return nil
}
