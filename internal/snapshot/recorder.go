// Package snapshot archives the raw upstream pages the scrapers parse.
package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/logging"
	"github.com/vedicportal/portal/internal/portal"
)

const contentType = "text/html; charset=utf-8"

// Config controls where snapshots are written inside the blob store.
type Config struct {
	Prefix string
}

// Recorder writes page bodies to a BlobStore under content-addressed names.
type Recorder struct {
	store  portal.BlobStore
	prefix string
	clock  portal.Clock
	logger *zap.Logger
}

// New constructs a Recorder.
func New(store portal.BlobStore, cfg Config, clock portal.Clock, logger *zap.Logger) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &Recorder{
		store:  store,
		prefix: strings.Trim(cfg.Prefix, "/"),
		clock:  clock,
		logger: logging.OrNop(logger).Named("snapshot"),
	}, nil
}

// Record stores body as <prefix>/<target>/<YYYY/MM/DD>/<sha256>.html and returns the blob URI.
func (r *Recorder) Record(ctx context.Context, target, sourceURL string, body []byte) (string, error) {
	if target == "" {
		return "", fmt.Errorf("target is required")
	}
	objectPath := r.ObjectPath(target, body)
	uri, err := r.store.PutObject(ctx, objectPath, contentType, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", objectPath, err)
	}
	r.logger.Debug("snapshot written",
		zap.String("target", target),
		zap.String("source_url", sourceURL),
		zap.String("uri", uri),
		zap.Int("bytes", len(body)),
	)
	return uri, nil
}

// ObjectPath returns the blob path Record would use for body right now.
func (r *Recorder) ObjectPath(target string, body []byte) string {
	sum := sha256.Sum256(body)
	day := r.clock.Now().UTC().Format("2006/01/02")
	name := hex.EncodeToString(sum[:]) + ".html"
	if r.prefix == "" {
		return path.Join(target, day, name)
	}
	return path.Join(r.prefix, target, day, name)
}
