// Package verify produces the scannable verification code embedded into
// rendered vale documents and parses verification URLs back to folios.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// ErrVerificationImageFailed is returned when the QR image could not be
// produced. Issuance fails closed on it; no placeholder image is ever used.
var ErrVerificationImageFailed = errors.New("verification image failed")

// ErrInvalidVerificationURL is returned when a URL does not carry a parseable folio
var ErrInvalidVerificationURL = errors.New("invalid verification url")

// folioPattern is the wire contract for folios embedded in verification URLs
var folioPattern = regexp.MustCompile(`^[A-Z]+-\d+-\d+$`)

// imageSize is the pixel edge of the generated QR PNG
const imageSize = 256

// Embedder generates QR verification images for folios.
type Embedder struct {
	baseURL string
	settle  time.Duration
	logger  *zap.Logger
}

// NewEmbedder creates an embedder for the given verification base URL.
// settle is the short bounded delay before capture, giving the underlying
// renderer time to materialize; zero disables it.
func NewEmbedder(baseURL string, settle time.Duration, logger *zap.Logger) *Embedder {
	return &Embedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		settle:  settle,
		logger:  logger,
	}
}

// Embed produces a PNG QR image encoding the verification URL of the folio.
// Single attempt: a capture failure is surfaced, never papered over.
func (e *Embedder) Embed(ctx context.Context, folio string) ([]byte, error) {
	target := VerificationURL(e.baseURL, folio)

	if e.settle > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrVerificationImageFailed, ctx.Err())
		case <-time.After(e.settle):
		}
	}

	png, err := qrcode.Encode(target, qrcode.Medium, imageSize)
	if err != nil {
		e.logger.Error("Failed to encode verification QR",
			zap.String("folio", folio),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrVerificationImageFailed, err)
	}

	e.logger.Debug("Verification QR generated",
		zap.String("folio", folio),
		zap.String("url", target),
		zap.Int("bytes", len(png)))
	return png, nil
}

// VerificationURL builds the wire-format verification URL for a folio:
// <base>/vale/<FOLIO>.
func VerificationURL(baseURL, folio string) string {
	return fmt.Sprintf("%s/vale/%s", strings.TrimRight(baseURL, "/"), folio)
}

// ParseFolio extracts the folio from a verification URL. The round trip
// ParseFolio(VerificationURL(base, f)) == f holds for every valid folio.
func ParseFolio(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVerificationURL, err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-2] != "vale" {
		return "", fmt.Errorf("%w: missing /vale/ segment in %q", ErrInvalidVerificationURL, u.Path)
	}

	folio := parts[len(parts)-1]
	if !folioPattern.MatchString(folio) {
		return "", fmt.Errorf("%w: folio %q does not match wire format", ErrInvalidVerificationURL, folio)
	}
	return folio, nil
}
