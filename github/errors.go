package github

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/google/go-github/v67/github"

	"github.com/example42/sai-suite-sub001/errors"
)

// wrapError classifies a go-github error by rate limit state or HTTP
// status, falling back to a network error.
func wrapError(err error, resp *github.Response, message string) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if stderrors.As(err, &rateErr) {
		return errors.WithContext(errors.Wrap(err, errors.CodeRateLimit, message),
			"reset_at", rateErr.Rate.Reset.Time)
	}
	var abuseErr *github.AbuseRateLimitError
	if stderrors.As(err, &abuseErr) {
		return errors.Wrap(err, errors.CodeRateLimit, message)
	}

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	var ghErr *github.ErrorResponse
	if stderrors.As(err, &ghErr) && ghErr.Response != nil {
		statusCode = ghErr.Response.StatusCode
	}
	if statusCode != 0 {
		return errors.Wrap(err, codeForStatus(statusCode), message)
	}

	return wrapTransportError(err, message)
}

// wrapTransportError classifies errors raised before any response arrived.
func wrapTransportError(err error, message string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeTimeout, message)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.WithClassification(errors.Wrap(err, errors.CodeNetwork, message), errors.ClassificationPermanent)
	}
	return errors.Wrap(err, errors.CodeNetwork, message)
}

func statusError(statusCode int, message string) error {
	return errors.WithContext(errors.New(codeForStatus(statusCode), message), "status", statusCode)
}

func codeForStatus(statusCode int) errors.ErrorCode {
	switch statusCode {
	case http.StatusNotFound:
		return errors.CodeNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CodeUnauthorized
	case http.StatusTooManyRequests:
		return errors.CodeRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errors.CodeTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.CodeInvalidInput
	}
	if statusCode >= 500 {
		return errors.CodeNetwork
	}
	return errors.CodeInternal
}
