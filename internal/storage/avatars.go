package storage

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// AvatarStore persists avatar images on local disk, keyed by profile ID
// with overwrite-on-conflict semantics, and serves them back under
// /static/avatars/.
type AvatarStore struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

const maxAvatarBytes = 2 << 20 // 2 MiB

// NewAvatarStore creates the store and its directory.
func NewAvatarStore(dir, baseURL string, logger *slog.Logger) (*AvatarStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar dir: %w", err)
	}

	return &AvatarStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Save writes the image for a profile, replacing any previous one, and
// returns the publicly resolvable URL.
func (s *AvatarStore) Save(profileID string, r io.Reader, contentType string) (string, error) {
	ext, err := extensionFor(contentType)
	if err != nil {
		return "", err
	}

	// Remove stale variants with other extensions so the profile always
	// resolves to exactly one file.
	matches, _ := filepath.Glob(filepath.Join(s.dir, profileID+".*"))
	for _, m := range matches {
		os.Remove(m)
	}

	path := filepath.Join(s.dir, profileID+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(r, maxAvatarBytes)); err != nil {
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}

	url := fmt.Sprintf("%s/static/avatars/%s%s", s.baseURL, profileID, ext)
	s.logger.Debug("avatar stored",
		slog.String("profile_id", profileID),
		slog.String("path", path),
	)
	return url, nil
}

// Handler serves stored avatars.
func (s *AvatarStore) Handler() http.Handler {
	return http.StripPrefix("/static/avatars/", http.FileServer(http.Dir(s.dir)))
}

func extensionFor(contentType string) (string, error) {
	switch contentType {
	case "image/png":
		return ".png", nil
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("unsupported avatar content type %q", contentType)
	}
}
