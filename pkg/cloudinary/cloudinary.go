// Package cloudinary stores dispute evidence images.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/google/uuid"
)

// Upload is a stored evidence image.
type Upload struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PublicID     string `json:"publicId"`
}

// Client uploads evidence on behalf of a user.
type Client interface {
	UploadEvidence(ctx context.Context, file io.Reader, ownerID uint) (*Upload, error)
}

// Evidence is kept near full size so reviewers can read details; the
// thumbnail feeds the admin dispute list.
const (
	ImageWidth = 1600
	ThumbWidth = 200
)

// BuildImageURL returns a delivery URL for publicID scaled to width.
func BuildImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_limit/%s",
		cloudName, width, publicID)
}

type client struct {
	cloudName string
	folder    string
	up        *uploader.API
}

func (c *client) UploadEvidence(ctx context.Context, file io.Reader, ownerID uint) (*Upload, error) {
	eagerAsync := false
	res, err := c.up.Upload(ctx, file, uploader.UploadParams{
		Folder:     path.Join(c.folder, "evidence", strconv.FormatUint(uint64(ownerID), 10)),
		PublicID:   "ev_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Eager:      fmt.Sprintf("q_auto,f_auto,w_%d,c_fill", ThumbWidth),
		EagerAsync: &eagerAsync,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	out := &Upload{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		ThumbnailURL: BuildImageURL(c.cloudName, res.PublicID, ThumbWidth),
	}
	if len(res.Eager) > 0 && res.Eager[0].SecureURL != "" {
		out.ThumbnailURL = res.Eager[0].SecureURL
	}
	return out, nil
}

// New returns a Client storing under folder. It returns nil, nil when
// cloudName is empty so uploads can be disabled.
func New(cloudName, apiKey, apiSecret, folder string) (Client, error) {
	if cloudName == "" {
		return nil, nil
	}
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &client{cloudName: cloudName, folder: folder, up: up}, nil
}
