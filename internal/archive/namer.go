// Package archive names archived listing pages by content digest.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Namer places pages under {prefix}/{YYYY-MM-DD}/{sha256}{ext}. Identical
// bodies archived on the same UTC day land on the same object.
type Namer struct {
	prefix string
	ext    string
}

// NewNamer builds a Namer. An empty ext means ".html".
func NewNamer(prefix, ext string) *Namer {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		ext = ".html"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Namer{prefix: strings.Trim(prefix, "/"), ext: ext}
}

// ObjectPath implements catalog.ArchiveNamer.
func (n *Namer) ObjectPath(day time.Time, body []byte) string {
	return path.Join(n.prefix, day.UTC().Format(dayLayout), Digest(body)+n.ext)
}

// Digest returns the hex SHA-256 of body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
