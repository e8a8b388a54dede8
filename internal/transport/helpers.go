package transport

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shinnn23/watermark-tool/internal/compositor"
	"github.com/shinnn23/watermark-tool/internal/model"
	"github.com/wb-go/wbf/ginext"
)

// parseSpecForm reads the watermark fields of the multipart/urlencoded
// form. Only syntax is checked here; range validation belongs to the
// service and the compositor.
func parseSpecForm(ctx *ginext.Context) (model.WatermarkSpec, error) {
	spec := model.WatermarkSpec{
		Text:     ctx.PostForm("text"),
		FontName: ctx.PostForm("font"),
		Color:    formValue(ctx, "color", "#FFFFFF"),
		Mode:     model.PlacementMode(formValue(ctx, "mode", string(model.ModeSingle))),
		Anchor:   model.Anchor(ctx.PostForm("anchor")),
	}

	var err error
	if spec.Size, err = atoiField(ctx, "size", "50"); err != nil {
		return spec, err
	}
	if spec.SpacingX, err = atoiField(ctx, "spacing_x", "0"); err != nil {
		return spec, err
	}
	if spec.SpacingY, err = atoiField(ctx, "spacing_y", "0"); err != nil {
		return spec, err
	}
	if spec.Opacity, err = floatField(ctx, "opacity", "1"); err != nil {
		return spec, err
	}
	if spec.Rotation, err = floatField(ctx, "rotation", "0"); err != nil {
		return spec, err
	}

	return spec, nil
}

func formValue(ctx *ginext.Context, field, def string) string {
	if v := ctx.PostForm(field); v != "" {
		return v
	}
	return def
}

func atoiField(ctx *ginext.Context, field, def string) (int, error) {
	raw := formValue(ctx, field, def)
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("incorrect %s value %q", field, raw)
	}
	return val, nil
}

func floatField(ctx *ginext.Context, field, def string) (float64, error) {
	raw := formValue(ctx, field, def)
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("incorrect %s value %q", field, raw)
	}
	return val, nil
}

func errorCodeDefiner(err error) int {
	var badSpec *compositor.InvalidSpecError
	var badFont *compositor.FontRenderError

	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrBatchNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.As(err, &badFont):
		return 422
	case errors.As(err, &badSpec),
		errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrNoImages),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrUnknownFont),
		errors.Is(err, model.ErrUnsupportedFormat):
		return 400
	default:
		return 500
	}
}
