package launchpad

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultWebRoot hosts the OAuth token endpoints.
const DefaultWebRoot = "https://launchpad.net/"

// RequestToken is an unauthorized token the user approves in a browser.
type RequestToken struct {
	Token  string
	Secret string
}

// Authorizer runs the OAuth handshake for a desktop application. The request
// token it hands out must be approved in a browser before AccessToken
// succeeds.
type Authorizer struct {
	WebRoot     string
	ConsumerKey string
	HTTPClient  *http.Client
}

// NewAuthorizer returns an authorizer against webRoot, or DefaultWebRoot
// when empty.
func NewAuthorizer(webRoot, consumerKey string) *Authorizer {
	if webRoot == "" {
		webRoot = DefaultWebRoot
	}
	if !strings.HasSuffix(webRoot, "/") {
		webRoot += "/"
	}
	return &Authorizer{
		WebRoot:     webRoot,
		ConsumerKey: consumerKey,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// RequestToken asks for a new request token.
func (a *Authorizer) RequestToken(ctx context.Context) (*RequestToken, error) {
	vals, err := a.post(ctx, "+request-token", url.Values{
		"oauth_consumer_key":     {a.ConsumerKey},
		"oauth_signature_method": {"PLAINTEXT"},
		"oauth_signature":        {"&"},
	})
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}
	return &RequestToken{Token: vals.Get("oauth_token"), Secret: vals.Get("oauth_token_secret")}, nil
}

// AuthorizeURL is the page where the user approves tok.
func (a *Authorizer) AuthorizeURL(tok *RequestToken) string {
	return a.WebRoot + "+authorize-token?" + url.Values{"oauth_token": {tok.Token}}.Encode()
}

// AccessToken exchanges an authorized request token for credentials. It
// fails with an *HTTPError while the user has not yet approved the token.
func (a *Authorizer) AccessToken(ctx context.Context, tok *RequestToken) (Credentials, error) {
	vals, err := a.post(ctx, "+access-token", url.Values{
		"oauth_consumer_key":     {a.ConsumerKey},
		"oauth_token":            {tok.Token},
		"oauth_signature_method": {"PLAINTEXT"},
		"oauth_signature":        {"&" + tok.Secret},
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("access token: %w", err)
	}
	return Credentials{
		ConsumerKey:      a.ConsumerKey,
		OAuthToken:       vals.Get("oauth_token"),
		OAuthTokenSecret: vals.Get("oauth_token_secret"),
	}, nil
}

func (a *Authorizer) post(ctx context.Context, path string, form url.Values) (url.Values, error) {
	u := a.WebRoot + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, URL: u, Body: strings.TrimSpace(string(body))}
	}
	vals, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	if vals.Get("oauth_token") == "" {
		return nil, fmt.Errorf("%s: no oauth_token in response", u)
	}
	return vals, nil
}
