package socrata

import "errors"

// ErrFetchFailed marks a download that failed after exhausting retries
// or hit a non-retryable response.
var ErrFetchFailed = errors.New("dataset fetch failed")
