package square

import (
	"encoding/json"
	"errors"
	"net/http"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
)

// classify maps a Square failure onto an error code. Credential and quota
// problems belong to this service, not the caller, so they surface as
// upstream errors.
func classify(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	msg := "square " + op + " failed"

	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, msg)
	}
	for _, e := range squareErrors(apiErr) {
		if e != nil && e.Code == sq.ErrorCodeIdempotencyKeyReused {
			return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, msg)
		}
	}
	return pkgerrors.Wrap(codeForStatus(apiErr.StatusCode), err, msg)
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return pkgerrors.CodeUpstream
	}
	if status >= 400 && status < 500 {
		return pkgerrors.CodeValidation
	}
	return pkgerrors.CodeUpstream
}

// squareErrors decodes the errors array Square puts in a failed response body.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(inner.Error()), &body) != nil {
		return nil
	}
	return body.Errors
}
