package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// GoogleUser is the portion of Google's userinfo response we care about.
// Google returns a larger object — we only unmarshal the fields we need.
type GoogleUser struct {
	Sub           string `json:"sub"` // Google's opaque subject identifier — stable, never changes
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// Name assembles a display name from the profile's given and family
// names, falling back to the email's local part when both are hidden.
func (u *GoogleUser) Name() string {
	name := strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	if name != "" {
		return name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// discoveryDocument is the subset of Google's OpenID Connect discovery
// metadata this provider needs. Endpoint URLs are fetched live rather
// than hardcoded, so Google can move them without breaking us.
type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization
// Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the user to Google's authorization endpoint with our
//     ClientID and the requested scopes (openid, email, profile).
//  2. The user approves on Google.
//  3. Google redirects back to CallbackURL with a short-lived "code".
//  4. We exchange the code for an access token (server-to-server, using
//     the ClientSecret — the token never touches the browser).
//  5. We call the userinfo endpoint for the identity's profile.
type GoogleProvider struct {
	clientID     string
	clientSecret string
	discoveryURL string
	callbackURL  string

	// client enforces a timeout on every provider call — discovery,
	// token exchange, and userinfo. Without it a slow identity provider
	// stalls login requests indefinitely.
	client *http.Client
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
//
// Returns an error when any of clientID, clientSecret, or discoveryURL is
// missing, so misconfiguration surfaces at startup rather than as a
// failed network call mid-login.
func NewGoogleProvider(clientID, clientSecret, discoveryURL, callbackURL string) (*GoogleProvider, error) {
	if clientID == "" || clientSecret == "" || discoveryURL == "" {
		return nil, fmt.Errorf("auth: Google OAuth requires client id, client secret, and discovery URL")
	}
	return &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		discoveryURL: discoveryURL,
		callbackURL:  callbackURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// discover fetches Google's current endpoint metadata from the
// well-known discovery document.
func (p *GoogleProvider) discover(ctx context.Context) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building discovery request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: fetching Google discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google discovery document returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("auth: decoding Google discovery document: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.UserinfoEndpoint == "" {
		return nil, fmt.Errorf("auth: Google discovery document is missing endpoints")
	}

	return &doc, nil
}

// config builds the oauth2.Config for the discovered endpoints.
func (p *GoogleProvider) config(doc *discoveryDocument) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  p.callbackURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  doc.AuthorizationEndpoint,
			TokenURL: doc.TokenEndpoint,
		},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// The state is a random string the handler generates and stores in a
// cookie before redirecting. When Google calls back, the handler checks
// the returned state against the cookie — this proves the callback was
// initiated by this server, not a CSRF attacker.
func (p *GoogleProvider) AuthURL(ctx context.Context, state string) (string, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return "", err
	}
	return p.config(doc).AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange completes the OAuth flow: trades the authorization code for a
// Google user profile.
//
// Steps:
//  1. Exchange the code for an OAuth access token (server-to-server)
//  2. Use the token to call Google's userinfo endpoint
//  3. Unmarshal the response into a GoogleUser struct
//
// The returned GoogleUser still needs its EmailVerified flag checked by
// the caller — an unverified email must not be trusted as an identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	cfg := p.config(doc)

	// oauth2 picks its HTTP client out of the context; inject ours so
	// the token exchange inherits the same timeout.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	oauthToken, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// cfg.Client returns an *http.Client that adds the
	// "Authorization: Bearer <token>" header to every request.
	client := cfg.Client(ctx, oauthToken)

	resp, err := client.Get(doc.UserinfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo endpoint returned status %d", resp.StatusCode)
	}

	var gUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if gUser.Sub == "" {
		return nil, fmt.Errorf("auth: Google returned an invalid user (empty sub)")
	}

	return &gUser, nil
}
