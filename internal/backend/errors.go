package backend

import (
	stderrors "errors"
	"strings"

	"github.com/aws/smithy-go"
	gooseerrors "github.com/go-goose/goose/v5/errors"
)

// IsDuplicate reports whether err means the resource already exists.
// Provisioning treats such errors as success.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		// InvalidKeyPair.Duplicate, InvalidGroup.Duplicate, InvalidPermission.Duplicate
		if strings.HasSuffix(code, ".Duplicate") {
			return true
		}
	}

	if gooseerrors.IsDuplicateValue(err) {
		return true
	}

	return duplicateMessage(err)
}

// duplicateMessage matches providers that only say so in the message text.
func duplicateMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists")
}
