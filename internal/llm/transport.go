package llm

import (
	"net/http"

	"google.golang.org/api/googleapi"
)

// apiKeyHeader authenticates REST calls when the client supplies its own
// http.Client, which makes option.WithAPIKey a no-op for those calls.
const apiKeyHeader = "x-goog-api-key"

// responseError carries an API error response out of the HTTP client. It does
// not unwrap to *googleapi.Error, so the generated client's retry policy, which
// backs off and retries 503 until its ten minute call timeout, never matches it.
type responseError struct {
	apiErr *googleapi.Error
}

func (e *responseError) Error() string { return e.apiErr.Error() }

// singleAttemptTransport makes every generateContent call a single HTTP
// request. Non-2xx responses come back as *responseError.
type singleAttemptTransport struct {
	base   http.RoundTripper
	apiKey string
}

func newSingleAttemptClient(apiKey string) *http.Client {
	return &http.Client{Transport: &singleAttemptTransport{base: http.DefaultTransport, apiKey: apiKey}}
}

func (t *singleAttemptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(apiKeyHeader, t.apiKey)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := googleapi.CheckResponse(resp); err != nil {
		resp.Body.Close()
		apiErr, ok := err.(*googleapi.Error)
		if !ok {
			apiErr = &googleapi.Error{Code: resp.StatusCode, Message: err.Error()}
		}
		return nil, &responseError{apiErr: apiErr}
	}
	return resp, nil
}
