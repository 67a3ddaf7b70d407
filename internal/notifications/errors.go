package notifications

import "fmt"

// DeliveryError reports a card that could not be delivered. It is fatal for
// the tick.
type DeliveryError struct {
	Kind     string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s card (after %d attempt(s)): %v", e.Kind, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx HTTP response from Lark.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Transient reports whether retrying may succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// APIError is a Lark response with a non-zero code.
type APIError struct {
	Endpoint string
	Code     int
	Msg      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: code %d: %s", e.Endpoint, e.Code, e.Msg)
}
