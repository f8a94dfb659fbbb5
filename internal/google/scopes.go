package google

// DefaultOAuthScopes are the scopes the cached token must carry:
//   - gmail.modify: list threads, mark read/unread, trash
//   - gmail.settings.basic: create, list and delete filters
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.settings.basic",
}
