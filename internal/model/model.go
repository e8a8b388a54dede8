// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/shinnn23/watermark-tool/internal/compositor"
)

type (
	Status        string
	PlacementMode string
	Anchor        string
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

const (
	ModeSingle PlacementMode = "single"
	ModeTiled  PlacementMode = "tiled"
)

const (
	AnchorCenter      Anchor = "center"
	AnchorTopLeft     Anchor = "top_left"
	AnchorTopRight    Anchor = "top_right"
	AnchorBottomLeft  Anchor = "bottom_left"
	AnchorBottomRight Anchor = "bottom_right"
)

//---------------------

// WatermarkSpec carries the full watermark configuration of one batch -
// the same set of fields the web form exposes. Stored as JSONB alongside
// the batch so the worker sees exactly what the user submitted.
type WatermarkSpec struct {
	Text     string        `json:"text" form:"text"`
	FontName string        `json:"font" form:"font"`
	Size     int           `json:"size" form:"size"`
	Color    string        `json:"color" form:"color"` // hex, e.g. "#FF0000"
	Opacity  float64       `json:"opacity" form:"opacity"`
	Rotation float64       `json:"rotation" form:"rotation"`
	Mode     PlacementMode `json:"mode" form:"mode"`
	SpacingX int           `json:"spacing_x" form:"spacing_x"`
	SpacingY int           `json:"spacing_y" form:"spacing_y"`
	Anchor   Anchor        `json:"anchor,omitempty" form:"anchor"`
}

// Compositor converts the form-facing spec into the compositor's value
// object.
func (s WatermarkSpec) Compositor() compositor.Spec {
	return compositor.Spec{
		Text:     s.Text,
		Size:     s.Size,
		Color:    s.Color,
		Opacity:  s.Opacity,
		Rotation: s.Rotation,
		Mode:     compositor.Mode(s.Mode),
		SpacingX: s.SpacingX,
		SpacingY: s.SpacingY,
		Anchor:   compositor.Anchor(s.Anchor),
	}
}

func (s *WatermarkSpec) Scan(value any) error {
	if value == nil {
		*s = WatermarkSpec{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for WatermarkSpec")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to WatermarkSpec: %w", err)
	}
	return nil
}

func (s WatermarkSpec) Value() (driver.Value, error) {
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal WatermarkSpec to JSONB: %w", err)
	}

	return res, nil
}

//---------------------

// BatchItem tracks one uploaded image inside a batch. A failed item keeps
// its error message here and never blocks the siblings.
type BatchItem struct {
	SourceKey   string `json:"source_key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
}

type BatchItems []BatchItem

func (s *BatchItems) Scan(value any) error {
	if value == nil {
		*s = BatchItems{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for BatchItems")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to BatchItems: %w", err)
	}
	return nil
}

func (s BatchItems) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal BatchItems to JSONB: %w", err)
	}

	return res, nil
}

//---------------------

type Batch struct {
	UID       uuid.UUID     `json:"uid"`
	Spec      WatermarkSpec `json:"spec"`
	Items     BatchItems    `json:"items,omitempty"`
	ResultKey string        `json:"-"`
	Status    Status        `json:"status,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// UploadedFile is one multipart image as it arrives from the handler.
type UploadedFile struct {
	File        multipart.File
	Name        string
	ContentType string
	Size        int64
}

type BatchCreateData struct {
	Spec  WatermarkSpec
	Files []UploadedFile
}

type PreviewData struct {
	Spec WatermarkSpec
	File UploadedFile
}

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later") // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")            // 400
	ErrIncorrectID       error = errors.New("incorrect batch UUID")                  // 400
	ErrBatchNotFound     error = errors.New("specified batch UUID doesn't exist")    // 404
	ErrResultNotReady    error = errors.New("requested batch is not processed yet")  // 404
	ErrNoImages          error = errors.New("at least one image is required")        // 400
	ErrEmptySource       error = errors.New("empty/incorrect source image provided") // 400
	ErrIncorrectStatus   error = errors.New("incorrect status provided")             // 400
	ErrUnknownFont       error = errors.New("requested font is not available")       // 400
	ErrUnsupportedFormat error = errors.New("unsupported source image format")       // 400
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	ZIP  = "application/zip"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
}
