package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount is the token cache entry used when no account is configured.
const DefaultAccount = "default"

// cacheDirName is the directory below the user cache dir holding token files.
const cacheDirName = "senderwatch"

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Credentials identify the OAuth client that issued the cached tokens.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Validate reports whether the credentials can refresh a token.
func (c Credentials) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("google client id and client secret are required")
	}
	return nil
}

// HasToken checks if a token exists for the default account
func HasToken() bool {
	return HasTokenForAccount(DefaultAccount)
}

// HasTokenForAccount checks if a token file exists for the specified account
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// GetAuthenticationErrorMessage returns the message shown when an account has no usable token.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth token not found for account %q. "+
		"Run the login flow for this account and store the token at %s.",
		account, getTokenFilePath(account))
}

// TokenSourceForAccount returns a refreshing token source for the cached token of account.
// The cache file holds "<access token> <refresh token>".
func TokenSourceForAccount(ctx context.Context, account string, creds Credentials) (oauth2.TokenSource, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	slurp, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s", account)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token format for account %s", account)
	}

	ts := oauthConfig(creds).TokenSource(ctx, &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	})

	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}

	return ts, nil
}

// HTTPClientForAccount returns an HTTP client authenticated with the cached token of account.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors
func HTTPClientForAccount(ctx context.Context, account string, creds Credentials) (*http.Client, error) {
	ts, err := TokenSourceForAccount(ctx, account, creds)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   &http.Transport{ForceAttemptHTTP2: false},
		},
	}, nil
}

// MigrateDefaultToken renames a legacy google.token to the default account's token file.
// It is a no-op when there is nothing to migrate.
func MigrateDefaultToken() error {
	dir := filepath.Join(userCacheDir(), cacheDirName)
	oldFile := filepath.Join(dir, "google.token")
	newFile := getTokenFilePath(DefaultAccount)

	if _, err := os.Stat(oldFile); os.IsNotExist(err) {
		return nil
	}
	if _, err := os.Stat(newFile); err == nil {
		return nil
	}

	if err := os.Rename(oldFile, newFile); err != nil {
		return fmt.Errorf("failed to migrate token file: %w", err)
	}
	return nil
}

func oauthConfig(creds Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       DefaultOAuthScopes,
	}
}

func validateAccountName(account string) error {
	if account == "" {
		return errors.New("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}

func getTokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), cacheDirName, "google-"+account+".token")
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
