package sheets

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// IsRetryable is the retry predicate for Sheets calls. Client errors such as
// a missing spreadsheet or a revoked share are permanent; rate limiting and
// server or transport errors are not.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return true
		}
		return apiErr.Code < 400 || apiErr.Code >= 500
	}
	return true
}
