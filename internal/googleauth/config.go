// Package googleauth manages the Google OAuth credential used by the
// calendar gateway: the one-time consent flow, the token store, and the
// guard that refuses calendar work until a refresh token is held.
package googleauth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

// NewOAuthConfig builds the OAuth client configuration for the consent flow.
// The calendar scope covers free/busy queries, event inserts and calendar
// management; offline access is requested at authorization time so the
// exchange yields a refresh token.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}
