package notify

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"AccessDeck/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSettings map[string]string

func (m mapSettings) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestReloadWithoutSettingsHasNoChannels(t *testing.T) {
	m := NewManager()
	m.Reload(mapSettings{})
	assert.False(t, m.HasChannels())
	assert.Empty(t, m.ChannelNames())
	assert.Error(t, m.SendToChannel("webhook", "hi"))
	m.Send("nobody listens")
}

func TestWebhookChannelDeliversTemplate(t *testing.T) {
	var mu sync.Mutex
	var body, header, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(b)
		header = r.Header.Get("X-Token")
		contentType = r.Header.Get("Content-Type")
		mu.Unlock()
	}))
	defer srv.Close()

	m := NewManager()
	m.Reload(mapSettings{
		constants.SettingNotifyWebhookURL:     srv.URL,
		constants.SettingNotifyWebhookHeaders: "X-Token: abc",
		constants.SettingNotifyWebhookTmpl:    `{"text":"{message}"}`,
	})
	require.Equal(t, []string{"webhook"}, m.ChannelNames())

	require.NoError(t, m.SendToChannel("webhook", "essay.docx: 3 fixes confirmed"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return body != ""
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, body, "essay.docx: 3 fixes confirmed")
	assert.Equal(t, "abc", header)
	assert.Contains(t, contentType, "application/json")
}

func TestRenderPayload(t *testing.T) {
	assert.Equal(t, "S\nmsg", renderPayload("", "text/plain", "S", "msg"))
	assert.Equal(t, "alert: S\nmsg", renderPayload("alert: {message}", "text/plain", "S", "msg"))
	assert.Equal(t, `{"t":"S\n\"q\""}`, renderPayload(`{"t":"{message}"}`, "application/json", "S", `"q"`))
}
