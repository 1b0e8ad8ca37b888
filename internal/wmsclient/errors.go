package wmsclient

import "fmt"

// RateLimited is returned when the WMS reports its own rate limit has been
// hit (response body has message == "api_rate_limit_reached"), distinct
// from the local sliding-window limiter which should normally prevent this
// from ever being observed. RetryAfter is the delay the WMS asked for, in
// seconds; zero means the caller should fall back to its own default.
type RateLimited struct {
	RetryAfter int
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("wms: rate limited, retry after %ds", e.RetryAfter)
}

// HttpError is returned for any non-2xx response that isn't otherwise
// shaped as a RateLimited or BusinessError.
type HttpError struct {
	Status int
	Body   string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("wms: http %d: %s", e.Status, e.Body)
}

// DecodeError wraps a failure to unmarshal a response body.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wms: decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// BusinessError is returned when the WMS responds 2xx but the payload
// carries an `errors`/`message` field, or is a bare string — the
// askPulpo response-shaping rule from the original client.
type BusinessError struct {
	Endpoint string
	Payload  string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("wms: business error on %s: %s", e.Endpoint, e.Payload)
}

// TransportError wraps a network-level failure (dial/timeout/connection
// reset) that never reached the WMS.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wms: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError reports a missing or invalid client configuration value.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("wms: config error: %s", e.Field)
}

// ServiceUnavailable describes a collaborator (article service, roster
// blob, roster spreadsheet) that cannot be reached at all. No function in
// this module constructs or returns it.
type ServiceUnavailable struct {
	Service string
	Err     error
}

func (e *ServiceUnavailable) Error() string {
	return fmt.Sprintf("wms: %s unavailable: %v", e.Service, e.Err)
}

func (e *ServiceUnavailable) Unwrap() error { return e.Err }
