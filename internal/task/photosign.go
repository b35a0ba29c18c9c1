package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xybclock/internal/common/apierrors"
	"xybclock/internal/common/config"
	"xybclock/internal/common/logger"
	"xybclock/internal/session"
	"xybclock/internal/xyb"
)

// allowedImageExts mirrors what the mini-program accepts for clock photos.
var allowedImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".bmp": true, ".gif": true, ".webp": true,
}

type PhotoSignInput struct {
	Code      string
	ImagePath string
	UseCache  bool
}

type PhotoSignOutput struct {
	ImageKey string `json:"imageKey"`
	Address  string `json:"address"`
}

// PhotoSignTask runs the three-step photo clock handshake: obtain an upload
// credential, push the image to object storage, finalize the clock with the
// returned key, then fire the follow-up notification. Each step runs only if
// the previous one fully succeeded; a partial handshake would leave an
// orphaned image or an unclocked day, so the first failure aborts the run.
type PhotoSignTask struct {
	client   *xyb.Client
	sessions *session.Manager
	location config.LocationConfig
	log      logger.Logger

	// openImage is swappable for tests.
	openImage func(path string) (io.ReadCloser, error)
}

func NewPhotoSignTask(client *xyb.Client, sessions *session.Manager, location config.LocationConfig, log logger.Logger) *PhotoSignTask {
	return &PhotoSignTask{
		client:   client,
		sessions: sessions,
		location: location,
		log:      log.WithFields(map[string]interface{}{"component": "photosign"}),
		openImage: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// validateImage rejects bad input before any remote call is made.
func validateImage(path string) error {
	if path == "" {
		return apierrors.NewLocalInputInvalid("no image selected for photo clock")
	}
	info, err := os.Stat(path)
	if err != nil {
		return apierrors.NewLocalInputInvalid(fmt.Sprintf("image %s does not exist", path))
	}
	if info.IsDir() {
		return apierrors.NewLocalInputInvalid(fmt.Sprintf("%s is a directory, not an image", path))
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(path))] {
		return apierrors.NewLocalInputInvalid("unsupported image format, use PNG/JPG/JPEG/BMP/GIF/WEBP")
	}
	return nil
}

func (t *PhotoSignTask) Execute(ctx context.Context, input *PhotoSignInput) (*PhotoSignOutput, error) {
	if err := validateImage(input.ImagePath); err != nil {
		return nil, err
	}

	s, err := t.sessions.Login(ctx, input.Code, input.UseCache)
	if err != nil {
		return nil, err
	}
	traineeID, err := t.sessions.EnsureTraineeID(ctx, s)
	if err != nil {
		return nil, err
	}
	geo, err := t.client.Regeo(ctx, t.location.Longitude, t.location.Latitude)
	if err != nil {
		return nil, err
	}

	policy, err := t.client.PostPolicy(ctx, s.Auth())
	if err != nil {
		return nil, err
	}

	img, err := t.openImage(input.ImagePath)
	if err != nil {
		return nil, apierrors.NewLocalInputInvalid(fmt.Sprintf("opening image: %v", err))
	}
	defer img.Close()

	ext := strings.ToLower(filepath.Ext(input.ImagePath))
	if ext == "" {
		ext = ".jpg"
	}
	filename := fmt.Sprintf("%d%s", time.Now().UnixMilli(), ext)

	key, err := t.client.UploadImage(ctx, policy, filename, img)
	if err != nil {
		return nil, err
	}

	if err := t.client.PostNew(ctx, s.Auth(), traineeID, geo,
		t.location.Longitude, t.location.Latitude, key); err != nil {
		return nil, err
	}
	if err := t.client.DeliverValue(ctx, s.Auth(), traineeID); err != nil {
		return nil, err
	}

	t.log.Info("photo clock completed", map[string]interface{}{"imageKey": key})
	return &PhotoSignOutput{ImageKey: key, Address: geo.FormattedAddress}, nil
}
