package googleauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/agendero/agendero/pkg/logging"
)

const stateTTL = 10 * time.Minute

const authPage = `<!DOCTYPE html>
<html>
  <body>
    <h1>Connect Google Calendar</h1>
    <p><a href="%s">Authorize access to Google Calendar</a></p>
    <p>Sign in with the account that owns the booking calendar. You will be
    redirected back here once access is granted.</p>
  </body>
</html>
`

const callbackPage = `<!DOCTYPE html>
<html>
  <body>
    <h1>Authorization complete</h1>
    <p>Tokens stored in %s.</p>
    <p>For deployments without a writable disk, set <code>GOOGLE_TOKEN_JSON</code> to:</p>
    <pre>%s</pre>
  </body>
</html>
`

const noRefreshPage = `<!DOCTYPE html>
<html>
  <body>
    <h1>Authorization incomplete</h1>
    <p>Google did not grant a refresh token. Revoke the app's access at
    myaccount.google.com/permissions and run /auth again.</p>
  </body>
</html>
`

// Handler serves the one-time consent flow: GET /auth renders the consent
// link, GET /oauth2callback exchanges the code and persists the token.
type Handler struct {
	oauth  *oauth2.Config
	store  *Store
	logger *logging.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

// NewHandler creates the consent-flow handler.
func NewHandler(oauth *oauth2.Config, store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		oauth:  oauth,
		store:  store,
		logger: logger,
		states: make(map[string]time.Time),
	}
}

// HandleAuth renders a page linking to the Google consent screen.
// GET /auth
func (h *Handler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		h.logger.Error("failed to generate state", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(stateBytes)

	h.mu.Lock()
	h.states[state] = time.Now().Add(stateTTL)
	h.cleanExpiredStates()
	h.mu.Unlock()

	authURL := h.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))

	h.logger.Info("initiating google consent flow")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, authPage, html.EscapeString(authURL))
}

// HandleCallback finishes the consent flow: validates the CSRF state,
// exchanges the code and persists the resulting token.
// GET /oauth2callback?code=...&state=...
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Error("google consent refused", "error", errParam)
		http.Error(w, `{"error": "consent_denied"}`, http.StatusBadRequest)
		return
	}
	if code == "" || state == "" {
		http.Error(w, `{"error": "missing code or state"}`, http.StatusBadRequest)
		return
	}
	if !h.consumeState(state) {
		h.logger.Error("invalid or expired oauth state", "state", state)
		http.Error(w, `{"error": "invalid or expired state"}`, http.StatusBadRequest)
		return
	}

	tok, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		http.Error(w, `{"error": "token exchange failed"}`, http.StatusInternalServerError)
		return
	}

	if err := h.store.Save(tok); err != nil {
		// The in-memory credential is already refreshed; surface the
		// persistence gap through the operator instructions instead.
		h.logger.Warn("token held in memory only", "error", err)
	}

	merged, err := h.store.Token()
	if err != nil {
		h.logger.Error("exchange yielded no refresh token")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, noRefreshPage)
		return
	}
	inline, err := json.Marshal(merged)
	if err != nil {
		h.logger.Error("failed to encode token for display", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	location := h.store.Path()
	if location == "" {
		location = "memory (no token file configured)"
	}

	h.logger.Info("google authorization completed", "token_file", h.store.Path())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, callbackPage, html.EscapeString(location), html.EscapeString(string(inline)))
}

func (h *Handler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	expiry, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return !time.Now().After(expiry)
}

// cleanExpiredStates removes expired state entries. Callers hold mu.
func (h *Handler) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.states {
		if now.After(expiry) {
			delete(h.states, state)
		}
	}
}
