package web

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/evcraddock/frontdesk/internal/auth"
)

// passkeySessionHeader carries the key of an in-flight login ceremony from
// begin to finish.
const passkeySessionHeader = "X-Passkey-Session"

const ceremonyTTL = 5 * time.Minute

type pendingLogin struct {
	data    *webauthn.SessionData
	started time.Time
}

// passkeyHandlers holds WebAuthn-related HTTP handlers.
type passkeyHandlers struct {
	wan      *webauthn.WebAuthn
	users    *auth.UserStore
	passkeys *auth.PasskeyStore
	issue    func(w http.ResponseWriter, r *http.Request, u *auth.User, method string)
	now      func() time.Time

	mu          sync.Mutex
	regSessions map[int64]*webauthn.SessionData
	logins      map[string]pendingLogin
}

func newPasskeyHandlers(
	cfg Config,
	users *auth.UserStore,
	passkeys *auth.PasskeyStore,
	issue func(http.ResponseWriter, *http.Request, *auth.User, string),
) (*passkeyHandlers, error) {
	rpID, origin, err := cfg.relyingParty()
	if err != nil {
		return nil, err
	}

	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Front Desk",
		RPID:          rpID,
		RPOrigins:     []string{origin},
	})
	if err != nil {
		return nil, err
	}

	return &passkeyHandlers{
		wan:         wan,
		users:       users,
		passkeys:    passkeys,
		issue:       issue,
		now:         time.Now,
		regSessions: make(map[int64]*webauthn.SessionData),
		logins:      make(map[string]pendingLogin),
	}, nil
}

func (h *passkeyHandlers) passkeyUser(r *http.Request, userID int64) (*auth.PasskeyUser, error) {
	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	creds, err := h.passkeys.WebAuthnCredentials(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return auth.NewPasskeyUser(u, creds), nil
}

// handleBeginRegistration starts passkey registration for the caller.
func (h *passkeyHandlers) handleBeginRegistration(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	user, err := h.passkeyUser(r, c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Exclude existing credentials so the same authenticator is not added twice.
	creds := user.WebAuthnCredentials()
	exclude := make([]protocol.CredentialDescriptor, len(creds))
	for i, cred := range creds {
		exclude[i] = cred.Descriptor()
	}

	creation, session, err := h.wan.BeginRegistration(user, webauthn.WithExclusions(exclude))
	if err != nil {
		slog.ErrorContext(r.Context(), "beginning passkey registration", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.regSessions[c.ID] = session
	h.mu.Unlock()

	apiJSON(w, creation, http.StatusOK)
}

// handleFinishRegistration verifies the attestation and stores the credential
// under the name given by ?name=.
func (h *passkeyHandlers) handleFinishRegistration(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	session, ok := h.regSessions[c.ID]
	delete(h.regSessions, c.ID)
	h.mu.Unlock()
	if !ok {
		apiError(w, "No registration in progress", http.StatusBadRequest)
		return
	}

	user, err := h.passkeyUser(r, c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	credential, err := h.wan.FinishRegistration(user, *session, r)
	if err != nil {
		slog.WarnContext(r.Context(), "finishing passkey registration", "user", c.ID, "err", err)
		apiError(w, "Registration failed", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "Passkey"
	}
	if err := h.passkeys.Save(r.Context(), c.ID, name, credential); err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "passkey registered", "user", c.ID, "name", name)
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusCreated)
}

// handleBeginLogin starts a discoverable passkey login. The ceremony key is
// returned in a header and must accompany the finish request.
func (h *passkeyHandlers) handleBeginLogin(w http.ResponseWriter, r *http.Request) {
	assertion, session, err := h.wan.BeginDiscoverableLogin()
	if err != nil {
		slog.ErrorContext(r.Context(), "beginning passkey login", "err", err)
		apiError(w, "internal error", http.StatusInternalServerError)
		return
	}

	key := uuid.NewString()
	now := h.now()

	h.mu.Lock()
	for k, p := range h.logins {
		if now.Sub(p.started) > ceremonyTTL {
			delete(h.logins, k)
		}
	}
	h.logins[key] = pendingLogin{data: session, started: now}
	h.mu.Unlock()

	w.Header().Set(passkeySessionHeader, key)
	apiJSON(w, assertion, http.StatusOK)
}

// handleFinishLogin verifies the assertion and issues an access token.
func (h *passkeyHandlers) handleFinishLogin(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(passkeySessionHeader)
	if key == "" {
		key = r.URL.Query().Get("session")
	}

	h.mu.Lock()
	pending, ok := h.logins[key]
	delete(h.logins, key)
	h.mu.Unlock()
	if !ok || h.now().Sub(pending.started) > ceremonyTTL {
		apiError(w, "No login in progress", http.StatusBadRequest)
		return
	}

	var loggedIn *auth.User
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		id, err := auth.UserIDFromHandle(userHandle)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		user, err := h.passkeyUser(r, id)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("unknown user")
		}
		loggedIn = user.User()
		return user, nil
	}

	if _, _, err := h.wan.FinishPasskeyLogin(handler, *pending.data, r); err != nil || loggedIn == nil {
		slog.WarnContext(r.Context(), "finishing passkey login", "err", err)
		apiError(w, "Login failed", http.StatusUnauthorized)
		return
	}

	h.issue(w, r, loggedIn, "passkey")
}

// handleList lists the caller's passkeys.
func (h *passkeyHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	stored, err := h.passkeys.ListByUser(r.Context(), c.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	type passkey struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]passkey, 0, len(stored))
	for _, s := range stored {
		out = append(out, passkey{ID: s.ID, Name: s.Name})
	}
	apiJSON(w, map[string]any{"passkeys": out}, http.StatusOK)
}

// handleDelete removes one of the caller's passkeys.
func (h *passkeyHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.passkeys.Delete(r.Context(), r.PathValue("id"), c.ID); err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": r.PathValue("id"), "deleted": true}, http.StatusOK)
}
