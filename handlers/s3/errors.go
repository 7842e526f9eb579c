package s3

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for S3 operations.
var (
	// Configuration errors.
	ErrInvalidConfig = errors.New("s3: invalid configuration")

	// Operation errors.
	ErrNotFound      = errors.New("s3: file not found")
	ErrAccessDenied  = errors.New("s3: access denied")
	ErrUploadFailed  = errors.New("s3: upload failed")
	ErrDeleteFailed  = errors.New("s3: delete failed")
	ErrHeadFailed    = errors.New("s3: head failed")
	ErrPresignFailed = errors.New("s3: presign failed")
	ErrNoUniqueName  = errors.New("s3: cannot find a unique filename")
)

// wrapError maps S3 errors onto the sentinels above.
// The original error is formatted with %v so callers match sentinels with
// errors.Is instead of depending on AWS types.
func wrapError(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var noObject *types.NotFound
	if errors.As(err, &noObject) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}
