package platform

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"matchday/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// AvatarMaxUploadBytes caps raw avatar uploads at 2MiB.
	AvatarMaxUploadBytes = 2 * 1024 * 1024
	// AvatarSize is the square edge of the stored avatar.
	AvatarSize = 256
	// AvatarWebPQuality is the encoder quality for stored avatars.
	AvatarWebPQuality = 75
)

// AvatarStore keeps one processed avatar per user on local disk. Stored keys
// have the shape <userID>/<unix-nanos>.webp; uploading replaces the previous
// file best effort.
type AvatarStore struct {
	dir string
}

// NewAvatarStore creates the storage directory if needed.
func NewAvatarStore(dir string) (*AvatarStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &AvatarStore{dir: dir}, nil
}

// Put validates, processes and stores an avatar for the user, returning the
// storage key. Any previous avatar files for the user are removed.
func (a *AvatarStore) Put(userID, contentType string, content []byte) (string, error) {
	if userID == "" {
		return "", models.NewValidationError("Invalid user")
	}
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if len(content) > AvatarMaxUploadBytes {
		return "", models.NewValidationError("File too large (max 2MB)")
	}
	if !strings.HasPrefix(normalizeContentType(contentType), "image/") {
		return "", models.NewValidationError("Only image files are allowed")
	}

	detected := http.DetectContentType(content)
	if !strings.HasPrefix(detected, "image/") {
		return "", models.NewValidationError("File content is not an image")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}

	processed := resizeSquare(cropSquare(decoded), AvatarSize)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, processed, &webp.Options{Quality: AvatarWebPQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	key := filepath.ToSlash(filepath.Join(userID, fmt.Sprintf("%d.webp", time.Now().UnixNano())))
	userDir := filepath.Join(a.dir, userID)
	if err := os.MkdirAll(userDir, 0o750); err != nil {
		return "", models.NewInternalError(err)
	}

	// Drop previous avatars; a failed removal only leaks disk.
	if entries, err := os.ReadDir(userDir); err == nil {
		for _, e := range entries {
			_ = os.Remove(filepath.Join(userDir, e.Name()))
		}
	}

	if err := os.WriteFile(filepath.Join(a.dir, filepath.FromSlash(key)), buf.Bytes(), 0o600); err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

// Resolve maps a storage key to an on-disk path, rejecting traversal.
func (a *AvatarStore) Resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", models.NewValidationError("Invalid avatar key")
	}
	full := filepath.Join(a.dir, filepath.FromSlash(key))
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", models.NewNotFoundError("avatar", key)
		}
		return "", models.NewInternalError(err)
	}
	return full, nil
}

func cropSquare(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return src
	}
	edge := w
	if h < edge {
		edge = h
	}
	x := b.Min.X + (w-edge)/2
	y := b.Min.Y + (h-edge)/2
	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.Draw(dst, dst.Bounds(), src, image.Point{X: x, Y: y}, draw.Src)
	return dst
}

func resizeSquare(src image.Image, edge int) image.Image {
	b := src.Bounds()
	if b.Dx() <= edge && b.Dy() <= edge {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
