package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error is a non 2xx reply of the api
type Error struct {
	Status  int           `json:"status"`
	Title   string        `json:"title"`
	Detail  string        `json:"detail"`
	Errors  []ErrorDetail `json:"errors"`
	Message string        `json:"-"`
}

type ErrorDetail struct {
	Message  string `json:"message"`
	Location string `json:"location"`
	Value    any    `json:"value"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("status: %d, detail: %q", e.Status, e.Detail)
	}
	return fmt.Sprintf("status: %d, message: %q", e.Status, e.Message)
}

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

func IsInvalid(err error) bool { return hasStatus(err, http.StatusUnprocessableEntity) }

func hasStatus(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

type httpTransport struct {
	client   *http.Client
	endpoint string
}

func (ht *httpTransport) call(ctx context.Context, method, path string, request, response any) error {
	var body io.Reader
	if request != nil {
		requestBytes, err := json.Marshal(request)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		body = bytes.NewReader(requestBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, ht.endpoint+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResponse, err := ht.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer httpResponse.Body.Close()

	responseBytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if httpResponse.StatusCode < http.StatusOK || httpResponse.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{Status: httpResponse.StatusCode, Message: string(bytes.TrimSpace(responseBytes))}
		// huma replies with application/problem+json, fall back to the raw body
		_ = json.Unmarshal(responseBytes, apiErr)
		apiErr.Status = httpResponse.StatusCode
		return apiErr
	}

	if response == nil || len(responseBytes) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(responseBytes, response), "failed to unmarshal response")
}
