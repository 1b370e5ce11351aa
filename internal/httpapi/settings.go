package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mapeditor/core-go/internal/settings"
)

type settingValue struct {
	Value any `json:"value"`
}

func (h *Handler) ensureSettings(w http.ResponseWriter) bool {
	if h.settings == nil {
		h.writeError(w, http.StatusServiceUnavailable, "settings_unavailable", "settings not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeSettingsError(w http.ResponseWriter, err error, details map[string]any) {
	switch {
	case errors.Is(err, settings.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "setting not found", details)
	case errors.Is(err, settings.ErrWrongType):
		h.writeError(w, http.StatusConflict, "wrong_type", err.Error(), details)
	default:
		h.log.Error().Err(err).Msg("settings update failed")
		h.writeError(w, http.StatusInternalServerError, "settings_error", "failed to update settings", nil)
	}
}

func (h *Handler) handleGetSystemSetting(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := chi.URLParam(r, "name")
	if !h.ensureSettings(w) {
		return
	}

	v, err := h.settings.System(category, name)
	if err != nil {
		h.writeSettingsError(w, err, map[string]any{"category": category, "name": name})
		return
	}

	h.writeJSON(w, http.StatusOK, settingValue{Value: v})
}

func (h *Handler) handlePutSystemSetting(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	name := chi.URLParam(r, "name")
	key := chi.URLParam(r, "key")

	var req settingValue
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	if !h.ensureSettings(w) {
		return
	}

	if err := h.settings.SetDictValue(category, name, key, req.Value); err != nil {
		h.writeSettingsError(w, err, map[string]any{"category": category, "name": name, "key": key})
		return
	}

	v, err := h.settings.System(category, name)
	if err != nil {
		h.writeSettingsError(w, err, map[string]any{"category": category, "name": name})
		return
	}
	h.writeJSON(w, http.StatusOK, settingValue{Value: v})
}

func (h *Handler) handleGetUserSettings(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if !h.ensureSettings(w) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.settings.User(user))
}

func (h *Handler) handlePutUserSettings(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	var req map[string]any
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	if !h.ensureSettings(w) {
		return
	}

	if err := h.settings.SetUser(user, req); err != nil {
		h.writeSettingsError(w, err, map[string]any{"user": user})
		return
	}
	h.writeJSON(w, http.StatusOK, h.settings.User(user))
}
