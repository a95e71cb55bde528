package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"AccessDeck/internal/constants"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/logger"

	nfy "github.com/nikoksr/notify"
	nfydc "github.com/nikoksr/notify/service/discord"
	nfyhttp "github.com/nikoksr/notify/service/http"
	nfyslack "github.com/nikoksr/notify/service/slack"
	nfytg "github.com/nikoksr/notify/service/telegram"
)

const subject = "AccessDeck"

// SettingsReader is the part of the settings repo the manager needs.
type SettingsReader interface {
	Get(key string) (string, error)
}

// Manager wraps nikoksr/notify.Notify and manages channel lifecycle.
type Manager struct {
	mu               sync.RWMutex
	notifier         *nfy.Notify
	channelNames     []string
	channelNotifiers map[string]*nfy.Notify
	timeout          time.Duration
}

func NewManager() *Manager {
	return &Manager{
		notifier:         nfy.New(),
		channelNotifiers: map[string]*nfy.Notify{},
		timeout:          15 * time.Second,
	}
}

// Reload reads notification settings and rebuilds the channels.
func (m *Manager) Reload(settings SettingsReader) {
	get := func(key string) string {
		v, _ := settings.Get(key)
		return strings.TrimSpace(v)
	}

	n := nfy.New()
	perChannel := make(map[string]*nfy.Notify)
	var names []string
	use := func(name string, svc nfy.Notifier) {
		n.UseServices(svc)
		pc := nfy.New()
		pc.UseServices(svc)
		perChannel[name] = pc
		names = append(names, name)
	}

	if token, chat := get(constants.SettingNotifyTelegramToken), get(constants.SettingNotifyTelegramChatID); token != "" && chat != "" {
		svc, err := nfytg.New(token)
		if err != nil {
			logger.Notify.Warn().Err(err).Msg("telegram init failed")
		} else if id, err := strconv.ParseInt(chat, 10, 64); err != nil {
			logger.Notify.Warn().Str("chat_id", chat).Msg("telegram chat id is not numeric")
		} else {
			svc.AddReceivers(id)
			use("telegram", svc)
		}
	}

	if token, channel := get(constants.SettingNotifyDiscordToken), get(constants.SettingNotifyDiscordChannel); token != "" && channel != "" {
		svc := nfydc.New()
		if err := svc.AuthenticateWithBotToken(token); err != nil {
			logger.Notify.Warn().Err(err).Msg("discord init failed")
		} else {
			svc.AddReceivers(channel)
			use("discord", svc)
		}
	}

	if token, channel := get(constants.SettingNotifySlackToken), get(constants.SettingNotifySlackChannelID); token != "" && channel != "" {
		svc := nfyslack.New(token)
		svc.AddReceivers(channel)
		use("slack", svc)
	}

	if url := get(constants.SettingNotifyWebhookURL); url != "" {
		use("webhook", webhookService(url,
			get(constants.SettingNotifyWebhookMethod),
			get(constants.SettingNotifyWebhookHeaders),
			get(constants.SettingNotifyWebhookTmpl)))
	}

	m.mu.Lock()
	m.notifier = n
	m.channelNames = names
	m.channelNotifiers = perChannel
	m.mu.Unlock()

	logger.Notify.Info().Int("channels", len(names)).Strs("names", names).Msg(i18n.T(i18n.MsgLogNotifyReloaded))
}

// webhookService posts the message to a URL. headers is "Key: Value, ..." and
// tmpl may contain {message}; a JSON-looking template is sent as JSON.
func webhookService(url, method, headers, tmpl string) *nfyhttp.Service {
	if method == "" {
		method = http.MethodPost
	}
	hdrs := make(http.Header)
	for _, h := range strings.Split(headers, ",") {
		parts := strings.SplitN(strings.TrimSpace(h), ":", 2)
		if len(parts) == 2 {
			hdrs.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
	contentType := "text/plain; charset=utf-8"
	trimmed := strings.TrimSpace(tmpl)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		contentType = "application/json; charset=utf-8"
	}

	svc := nfyhttp.New()
	svc.AddReceivers(&nfyhttp.Webhook{
		URL:         url,
		Header:      hdrs,
		ContentType: contentType,
		Method:      strings.ToUpper(method),
		BuildPayload: func(subject, message string) (payload any) {
			return renderPayload(tmpl, contentType, subject, message)
		},
	})
	return svc
}

func renderPayload(tmpl, contentType, subject, message string) string {
	text := subject + "\n" + message
	if tmpl == "" {
		return text
	}
	if strings.HasPrefix(contentType, "application/json") {
		text = escapeJSON(text)
	}
	return strings.ReplaceAll(tmpl, "{message}", text)
}

// Send dispatches a message to all configured channels.
func (m *Manager) Send(text string) {
	m.mu.RLock()
	n := m.notifier
	has := len(m.channelNames) > 0
	m.mu.RUnlock()
	if n == nil || !has {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := n.Send(ctx, subject, text); err != nil {
		logger.Notify.Warn().Err(err).Msg(i18n.T(i18n.MsgLogNotifySendFailed))
	}
}

// SendToChannel dispatches a message to one channel by name.
func (m *Manager) SendToChannel(channel, text string) error {
	m.mu.RLock()
	pc := m.channelNotifiers[channel]
	m.mu.RUnlock()

	if pc == nil {
		return fmt.Errorf("channel %q not configured", channel)
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := pc.Send(ctx, subject, text); err != nil {
		logger.Notify.Warn().Err(err).Str("channel", channel).Msg(i18n.T(i18n.MsgLogNotifySendFailed))
		return err
	}
	return nil
}

func (m *Manager) HasChannels() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channelNames) > 0
}

func (m *Manager) ChannelNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.channelNames...)
}

// escapeJSON escapes special characters for embedding in a JSON string value.
func escapeJSON(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}
