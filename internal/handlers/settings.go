package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/database"
	"AccessDeck/internal/notify"
	"AccessDeck/internal/web"
)

// editableSettings are the keys PUT /settings accepts.
var editableSettings = map[string]bool{
	constants.SettingNotifySlackToken:     true,
	constants.SettingNotifySlackChannelID: true,
	constants.SettingNotifyDiscordToken:   true,
	constants.SettingNotifyDiscordChannel: true,
	constants.SettingNotifyTelegramToken:  true,
	constants.SettingNotifyTelegramChatID: true,
	constants.SettingNotifyWebhookURL:     true,
	constants.SettingNotifyWebhookMethod:  true,
	constants.SettingNotifyWebhookHeaders: true,
	constants.SettingNotifyWebhookTmpl:    true,
	constants.SettingDemoFallback:         true,
}

// secretSettings are masked on read.
var secretSettings = map[string]bool{
	constants.SettingNotifySlackToken:    true,
	constants.SettingNotifyDiscordToken:  true,
	constants.SettingNotifyTelegramToken: true,
}

const maskedValue = "********"

// SettingsHandler manages admin settings: notification channels and the
// demo fallback switch.
type SettingsHandler struct {
	repo         *database.SettingRepo
	auditRepo    *database.AuditLogRepo
	notifyMgr    *notify.Manager
	demoFallback bool
}

// NewSettingsHandler takes the configured demo fallback, which applies until
// an admin overrides it.
func NewSettingsHandler(notifyMgr *notify.Manager, demoFallback bool) *SettingsHandler {
	return &SettingsHandler{
		repo:         database.NewSettingRepo(),
		auditRepo:    database.NewAuditLogRepo(),
		notifyMgr:    notifyMgr,
		demoFallback: demoFallback,
	}
}

// DemoFallback reports whether sample reports are served when the backend
// fails. It is read on every failure so changes apply without a restart.
func (h *SettingsHandler) DemoFallback() bool {
	v := h.repo.GetOr(constants.SettingDemoFallback, "")
	if v == "" {
		return h.demoFallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return h.demoFallback
	}
	return b
}

func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.GetAll()
	if err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	out := make(map[string]interface{}, len(editableSettings)+1)
	for key := range editableSettings {
		v := all[key]
		if secretSettings[key] && v != "" {
			v = maskedValue
		}
		out[key] = v
	}
	out[constants.SettingDemoFallback] = strconv.FormatBool(h.DemoFallback())
	out["notify_channels"] = h.notifyMgr.ChannelNames()
	web.OK(w, r, out)
}

// Update stores the given keys and reloads notification channels. Unknown
// keys are rejected; masked secrets are ignored.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	items := make(map[string]string, len(req))
	keys := make([]string, 0, len(req))
	for key, value := range req {
		if !editableSettings[key] {
			web.FailErr(w, r, web.ErrInvalidParam, key)
			return
		}
		value = strings.TrimSpace(value)
		if secretSettings[key] && value == maskedValue {
			continue
		}
		if key == constants.SettingDemoFallback {
			if _, err := strconv.ParseBool(value); err != nil {
				web.FailErr(w, r, web.ErrInvalidParam, key)
				return
			}
		}
		items[key] = value
		keys = append(keys, key)
	}
	if err := h.repo.SetBatch(items); err != nil {
		web.FailErr(w, r, web.ErrDBQuery)
		return
	}
	h.notifyMgr.Reload(h.repo)

	h.auditRepo.Create(&database.AuditLog{
		UserID:   web.GetUserID(r),
		Username: web.GetUsername(r),
		Action:   constants.ActionSettingsUpdate,
		Result:   "success",
		Detail:   strings.Join(keys, ","),
		IP:       web.ClientIP(r),
	})
	web.OK(w, r, map[string]interface{}{
		"updated":         len(items),
		"notify_channels": h.notifyMgr.ChannelNames(),
	})
}

type testNotifyRequest struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// TestNotify sends a message to one channel, or to all when none is named.
func (h *SettingsHandler) TestNotify(w http.ResponseWriter, r *http.Request) {
	var req testNotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		req.Message = "AccessDeck test notification"
	}
	if req.Channel == "" {
		if !h.notifyMgr.HasChannels() {
			web.FailErr(w, r, web.ErrInvalidParam, "no channels configured")
			return
		}
		h.notifyMgr.Send(req.Message)
		web.OK(w, r, map[string]interface{}{"channels": h.notifyMgr.ChannelNames()})
		return
	}
	if err := h.notifyMgr.SendToChannel(req.Channel, req.Message); err != nil {
		web.FailErr(w, r, web.ErrInvalidParam, err.Error())
		return
	}
	web.OK(w, r, map[string]interface{}{"channels": []string{req.Channel}})
}
