package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/web"
)

const prefDarkMode = "dark_mode"

// PreferencesHandler stores per-user UI preferences in the settings table.
type PreferencesHandler struct {
	repo *database.SettingRepo
}

func NewPreferencesHandler() *PreferencesHandler {
	return &PreferencesHandler{repo: database.NewSettingRepo()}
}

type Preferences struct {
	DarkMode bool `json:"dark_mode"`
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	web.OK(w, r, h.load(web.GetUserID(r)))
}

func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DarkMode *bool `json:"dark_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	uid := web.GetUserID(r)
	if req.DarkMode != nil {
		if err := h.repo.Set(constants.PreferenceKey(uid, prefDarkMode), strconv.FormatBool(*req.DarkMode)); err != nil {
			web.FailErr(w, r, web.ErrDBQuery)
			return
		}
	}
	web.OK(w, r, h.load(uid))
}

func (h *PreferencesHandler) load(uid uint) Preferences {
	dark, _ := strconv.ParseBool(h.repo.GetOr(constants.PreferenceKey(uid, prefDarkMode), "false"))
	return Preferences{DarkMode: dark}
}
