package validate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
)

// ArchiveMode selects which result pages are kept.
type ArchiveMode string

// Archive modes.
const (
	ArchiveOff      ArchiveMode = "off"
	ArchiveFailures ArchiveMode = "failures"
	ArchiveAll      ArchiveMode = "all"
)

// ParseArchiveMode validates a configured mode. Empty means off.
func ParseArchiveMode(s string) (ArchiveMode, error) {
	switch m := ArchiveMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ArchiveOff:
		return ArchiveOff, nil
	case ArchiveFailures, ArchiveAll:
		return m, nil
	default:
		return "", fmt.Errorf("unknown archive mode %q", s)
	}
}

// Archiver saves raw result pages to a blob store.
type Archiver struct {
	store  primerblast.BlobStore
	mode   ArchiveMode
	prefix string
}

// NewArchiver returns nil when mode is off or store is nil, which disables
// archiving.
func NewArchiver(store primerblast.BlobStore, mode ArchiveMode, prefix string) *Archiver {
	if store == nil || mode == ArchiveOff || mode == "" {
		return nil
	}
	if prefix == "" {
		prefix = "html"
	}
	return &Archiver{store: store, mode: mode, prefix: strings.Trim(prefix, "/")}
}

// Wants reports whether a page that ended in status is archived.
// "failures" keeps every status other than pass and processing.
func (a *Archiver) Wants(status primerblast.ValidationStatus) bool {
	if a == nil {
		return false
	}
	switch a.mode {
	case ArchiveAll:
		return true
	case ArchiveFailures:
		return status != primerblast.StatusPass && status != primerblast.StatusProcessing
	default:
		return false
	}
}

// ObjectPath is <prefix>/<primer_id>/<sha256>.html.
func (a *Archiver) ObjectPath(primerID string, body []byte) string {
	sum := sha256.Sum256(body)
	id := strings.NewReplacer("/", "_", "\\", "_").Replace(primerID)
	switch {
	case id == "":
		id = "unknown"
	case strings.Trim(id, ".") == "":
		// "." and ".." would climb out of the prefix once joined.
		id = strings.Repeat("_", len(id))
	}
	return path.Join(a.prefix, id, hex.EncodeToString(sum[:])+".html")
}

// Archive stores body and returns its URI.
func (a *Archiver) Archive(ctx context.Context, primerID string, body []byte) (string, error) {
	uri, err := a.store.PutObject(ctx, a.ObjectPath(primerID, body), "text/html; charset=utf-8", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("archive page for %s: %w", primerID, err)
	}
	return uri, nil
}
