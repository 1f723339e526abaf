package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenHandler proxies the OAuth authorization-code exchange to the
// identity provider so browser clients never talk to the provider's token
// endpoint directly.
type tokenHandler struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func newTokenHandler(endpoint string, logger *slog.Logger) *tokenHandler {
	return &tokenHandler{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// tokenResponse is what clients receive: the provider's ID token repackaged
// as the access token for this API.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// exchange handles POST /token. The form fields are forwarded verbatim to
// the provider; its ID token comes back as our access token.
func (h *tokenHandler) exchange(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body", h.logger)
		return
	}

	form := url.Values{}
	for _, key := range []string{"grant_type", "code", "client_id", "client_secret", "redirect_uri"} {
		if v := r.PostFormValue(key); v != "" {
			form.Set(key, v)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		h.logger.Error("building token request", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error", h.logger)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("token exchange failed", "error", err)
		writeError(w, http.StatusBadRequest, "Unable to fetch the token", h.logger)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("token exchange rejected", "status", resp.StatusCode)
		writeError(w, http.StatusBadRequest, "Unable to fetch the token", h.logger)
		return
	}

	var provider struct {
		IDToken   string `json:"id_token"`
		TokenType string `json:"token_type"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&provider); err != nil || provider.IDToken == "" {
		h.logger.Warn("invalid provider token response", "error", err)
		writeError(w, http.StatusBadRequest, "Received invalid token", h.logger)
		return
	}

	tokenType := provider.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: provider.IDToken,
		TokenType:   tokenType,
	}, h.logger)
}
