package blobstore

import (
	"bytes"
	"errors"
	"io"

	"github.com/aws/smithy-go"
)

// newReadSeeker wraps bytes in a ReadSeeker, which the S3 SDK requires to
// compute a payload checksum without buffering it again itself.
func newReadSeeker(b []byte) io.ReadSeeker {
	return bytes.NewReader(b)
}

// isNotFound reports whether err is the S3 "object not found" response to
// a HEAD request.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
