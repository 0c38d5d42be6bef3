package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/digpatho/growth-api/pkg/anthropic"
)

type keyDiagnostics struct {
	KeySource    *string `json:"keySource"`
	KeyPresent   bool    `json:"keyPresent"`
	KeyPreview   *string `json:"keyPreview"`
	KeyLength    int     `json:"keyLength"`
	APIStatus    string  `json:"apiStatus"`
	AccountError *string `json:"accountError"`
}

// maskKey keeps only a short prefix and suffix of a credential.
func maskKey(key string) string {
	if len(key) <= 14 {
		return "***"
	}
	return key[:10] + "..." + key[len(key)-4:]
}

// handleCheckKey verifies the Anthropic credential with a minimal live call.
// It always answers 200; the outcome is encoded in the body so the frontend
// can render it directly.
func (s *Server) handleCheckKey(w http.ResponseWriter, r *http.Request) {
	key := s.cfg.Anthropic.Key

	diag := keyDiagnostics{
		KeyPresent: key != "",
		KeyLength:  len(key),
	}
	if key != "" {
		src := s.keyFrom
		preview := maskKey(key)
		diag.KeySource = &src
		diag.KeyPreview = &preview
	}

	if key == "" {
		diag.APIStatus = "NO_KEY"
		msg := "No se encontró GROWTH_ANTHROPIC_KEY en las variables de entorno."
		diag.AccountError = &msg
		writeJSON(w, http.StatusOK, diag)
		return
	}

	_, err := s.probe.CreateMessage(r.Context(), anthropic.MessageRequest{
		Model:     s.cfg.Proxy.DefaultModel,
		MaxTokens: 5,
		Messages:  []anthropic.Message{{Role: "user", Content: "Hi"}},
	})
	if err == nil {
		diag.APIStatus = "OK"
		writeJSON(w, http.StatusOK, diag)
		return
	}

	var accountError string
	var apierr *anthropic.APIError
	switch {
	case errors.As(err, &apierr) && apierr.IsBilling():
		diag.APIStatus = "NO_CREDITS"
		accountError = "La API key es VÁLIDA, pero la cuenta de Anthropic NO tiene créditos. " +
			"Necesitás cargar créditos en: https://console.anthropic.com/settings/billing"
	case errors.As(err, &apierr) && apierr.StatusCode == http.StatusUnauthorized:
		diag.APIStatus = "INVALID_KEY"
		accountError = "La API key es INVÁLIDA o fue revocada. Generá una nueva en: https://console.anthropic.com/settings/keys"
	case errors.As(err, &apierr) && apierr.StatusCode == http.StatusForbidden:
		diag.APIStatus = "FORBIDDEN"
		accountError = "La API key no tiene permisos para este recurso. Verificá los permisos en la consola de Anthropic."
	case errors.As(err, &apierr):
		diag.APIStatus = fmt.Sprintf("HTTP_%d", apierr.StatusCode)
		accountError = apierr.Message
	default:
		diag.APIStatus = "NETWORK_ERROR"
		accountError = fmt.Sprintf("Error de red al conectar con Anthropic: %s", anthropic.Truncate(err.Error()))
	}
	diag.AccountError = &accountError
	writeJSON(w, http.StatusOK, diag)
}
