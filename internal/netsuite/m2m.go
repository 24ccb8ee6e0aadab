package netsuite

import (
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	tokenPath         = "/services/rest/auth/oauth2/v1/token"
	assertionType     = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionLifetime = time.Hour
)

// M2MCredentials configure the OAuth 2.0 client credentials flow, where the
// client authenticates with a JWT signed by a certificate uploaded to NetSuite.
type M2MCredentials struct {
	ClientID      string
	CertificateID string
	Scope         string
	PrivateKeyPEM []byte
}

// LoadPrivateKey reads a PEM-encoded RSA or EC private key from disk.
func LoadPrivateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	if block, _ := pem.Decode(data); block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}
	return data, nil
}

// parseSigningKey picks PS256 for RSA keys and the matching ES* method for EC keys.
func parseSigningKey(pemData []byte) (interface{}, jwt.SigningMethod, error) {
	if key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData); err == nil {
		return key, jwt.SigningMethodPS256, nil
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, nil, fmt.Errorf("unsupported private key: %w", err)
	}
	switch key.Curve.Params().BitSize {
	case 256:
		return key, jwt.SigningMethodES256, nil
	case 384:
		return key, jwt.SigningMethodES384, nil
	case 521:
		return key, jwt.SigningMethodES512, nil
	default:
		return nil, nil, fmt.Errorf("unsupported EC curve %s", key.Curve.Params().Name)
	}
}

// clientAssertion builds the signed JWT NetSuite exchanges for an access token.
func clientAssertion(creds M2MCredentials, tokenURL string, now time.Time) (string, error) {
	key, method, err := parseSigningKey(creds.PrivateKeyPEM)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"iss":   creds.ClientID,
		"scope": []string{creds.Scope},
		"aud":   tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	tok := jwt.NewWithClaims(method, claims)
	tok.Header["kid"] = creds.CertificateID

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing client assertion: %w", err)
	}
	return signed, nil
}

// assertionSource exchanges a freshly signed client assertion for each token,
// so refreshes never present an assertion past its one-hour lifetime.
type assertionSource struct {
	ctx      context.Context
	creds    M2MCredentials
	tokenURL string
	now      func() time.Time
}

func (s *assertionSource) Token() (*oauth2.Token, error) {
	assertion, err := clientAssertion(s.creds, s.tokenURL, s.now())
	if err != nil {
		return nil, err
	}
	cc := clientcredentials.Config{
		ClientID: s.creds.ClientID,
		TokenURL: s.tokenURL,
		EndpointParams: url.Values{
			"client_assertion_type": {assertionType},
			"client_assertion":      {assertion},
		},
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return cc.Token(s.ctx)
}

// NewM2MHTTPClient returns an HTTP client that sends a bearer token obtained
// from the account's OAuth 2.0 token endpoint. base supplies the transport
// and timeout for both the token exchange and API calls.
func NewM2MHTTPClient(ctx context.Context, baseURL string, creds M2MCredentials, base *http.Client) (*http.Client, error) {
	if base == nil {
		base = http.DefaultClient
	}
	if _, _, err := parseSigningKey(creds.PrivateKeyPEM); err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	src := &assertionSource{ctx: ctx, creds: creds, tokenURL: baseURL + tokenPath, now: time.Now}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, src))
	client.Timeout = base.Timeout
	return client, nil
}
