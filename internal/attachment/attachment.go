// Package attachment prepares forecast images for storage. Images are kept
// inline as base64 data URLs, so the size limits here bound how much of the
// storage quota a single forecast can take.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// Size limits, in bytes.
const (
	MaxImageBytes = 2 * 1024 * 1024 // raw input limit
	TargetBytes   = 500 * 1024      // size an image should be reduced to before storing
	QuotaBytes    = 4 * 1024 * 1024 // total budget for persisted state
)

// SupportedTypes lists the accepted image MIME types.
var SupportedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")
	ErrInvalidDataURL  = errors.New("invalid data URL")
)

// Validate sniffs the content type of data and checks it against the
// supported types and the size limit. It returns the detected MIME type.
func Validate(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), SupportedTypes...) {
		return "", fmt.Errorf("%w: %s, use PNG, JPG, GIF or WebP", ErrUnsupportedType, mtype.String())
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("%w: %s, maximum is %s", ErrTooLarge,
			humanize.IBytes(uint64(len(data))), humanize.IBytes(MaxImageBytes))
	}
	return mtype.String(), nil
}

// EncodeDataURL renders data as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a base64 data URL into its MIME type and payload.
func ParseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return mime, data, nil
}

// EstimateStorageSize returns the bytes a data URL occupies once persisted.
// Data URLs are ASCII, so this is the string length.
func EstimateStorageSize(dataURL string) int {
	return len(dataURL)
}

// CheckQuota reports an error when adding additional bytes to current usage
// would reach the storage quota.
func CheckQuota(current, additional int64) error {
	if current+additional >= QuotaBytes {
		return fmt.Errorf("%w: %s in use, %s more would reach the %s limit", ErrQuotaExceeded,
			humanize.IBytes(uint64(max(current, 0))), humanize.IBytes(uint64(max(additional, 0))),
			humanize.IBytes(QuotaBytes))
	}
	return nil
}

// OverTarget reports whether an encoded image is larger than the size images
// should be reduced to before storing.
func OverTarget(dataURL string) bool {
	// base64 inflates the payload by roughly 4/3 plus the header.
	return EstimateStorageSize(dataURL) > TargetBytes*137/100
}
