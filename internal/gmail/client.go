package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/senderwatch/internal/google"
	"github.com/teemow/senderwatch/internal/mailbox"
)

// userID is the Gmail API alias for the authenticated user.
const userID = "me"

// Client implements mailbox.API on the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	account string // The account this client is associated with
}

var _ mailbox.API = (*Client)(nil)

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClient creates a Gmail client from explicit client options.
// Tests use option.WithHTTPClient and option.WithEndpoint to point it at a fake server.
func NewClient(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// NewClientForAccount creates a Gmail client authenticated with the cached
// token of the given account. The mailbox identity is the profile's email
// address, so Account returns an address Gmail web links accept.
func NewClientForAccount(ctx context.Context, account string, creds google.Credentials) (*Client, error) {
	httpClient, err := google.HTTPClientForAccount(ctx, account, creds)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	client, err := NewClient(ctx, account, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	profile, err := client.svc.GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get Gmail profile for account %s: %w", account, err)
	}
	if profile.EmailAddress != "" {
		client.account = profile.EmailAddress
	}

	return client, nil
}
