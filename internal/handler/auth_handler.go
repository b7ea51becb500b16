package handler

import (
	"net/http"

	"github.com/freeeve/techsim/internal/auth"
	"github.com/freeeve/techsim/internal/logger"
)

// AuthHandler issues operator tokens and refreshes them.
type AuthHandler struct {
	jwtMgr *auth.JWTManager
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(jwtMgr *auth.JWTManager) *AuthHandler {
	return &AuthHandler{jwtMgr: jwtMgr}
}

// IssueToken handles POST /auth/token: exchanges the admin key for a token pair.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdminKey string `json:"admin_key"`
		Operator string `json:"operator"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.jwtMgr.CheckAdminKey(req.AdminKey); err != nil {
		l := logger.ForRequest(r.Context())
		l.Warn().Str("operator", req.Operator).Msg("Rejected token request")
		writeError(w, http.StatusUnauthorized, "invalid admin key")
		return
	}
	if req.Operator == "" {
		req.Operator = "operator"
	}

	tokens, err := h.jwtMgr.GenerateTokenPair(req.Operator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := h.jwtMgr.ValidateToken(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	tokens, err := h.jwtMgr.GenerateTokenPair(claims.OperatorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
