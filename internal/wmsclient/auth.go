package wmsclient

import (
	"context"
	"sync"

	"github.com/go-resty/resty/v2"
)

// tokenAuth holds the bearer token issued by the WMS's password grant and
// hands it out as request headers. It replaces the teacher's EIP-712/HMAC
// wallet auth with a single cached token, set by authenticate rather than
// signed per request.
type tokenAuth struct {
	mu       sync.RWMutex
	token    string
	login    string
	password string
}

func newTokenAuth(login, password string) *tokenAuth {
	return &tokenAuth{login: login, password: password}
}

func (a *tokenAuth) headers() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return map[string]string{
		"Content-Type":  "application/json",
		"authorization": "bearer " + a.token,
	}
}

func (a *tokenAuth) setToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// authenticate performs the password-grant exchange against authEndpoint
// and caches the resulting access token.
func (a *tokenAuth) authenticate(ctx context.Context, http *resty.Client, authEndpoint string) error {
	if a.login == "" {
		return &ConfigError{Field: "login"}
	}
	if a.password == "" {
		return &ConfigError{Field: "password"}
	}

	body := map[string]string{
		"grant_type": "password",
		"username":   a.login,
		"password":   a.password,
		"scope":      "default",
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	resp, err := http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(authEndpoint)
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.IsError() {
		return &HttpError{Status: resp.StatusCode(), Body: resp.String()}
	}
	if result.AccessToken == "" {
		return &BusinessError{Endpoint: authEndpoint, Payload: resp.String()}
	}

	a.setToken(result.AccessToken)
	return nil
}
