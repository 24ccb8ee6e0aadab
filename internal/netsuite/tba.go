package netsuite

import (
	"context"
	"net/http"

	"github.com/dghubble/oauth1"
)

// TBACredentials are the four secrets of a NetSuite token-based integration.
type TBACredentials struct {
	Realm          string
	ConsumerKey    string
	ConsumerSecret string
	TokenID        string
	TokenSecret    string
}

func (c TBACredentials) oauthConfig() *oauth1.Config {
	return &oauth1.Config{
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
		Realm:          c.Realm,
		Signer:         &oauth1.HMAC256Signer{ConsumerSecret: c.ConsumerSecret},
	}
}

// NewTBAHTTPClient returns an HTTP client that signs every request with an
// OAuth 1.0a HMAC-SHA256 Authorization header. Requests go out through base,
// whose timeout is carried over.
func NewTBAHTTPClient(ctx context.Context, creds TBACredentials, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth1.HTTPClient, base)
	client := creds.oauthConfig().Client(ctx, oauth1.NewToken(creds.TokenID, creds.TokenSecret))
	client.Timeout = base.Timeout
	return client
}
