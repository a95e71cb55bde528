package constants

import "strconv"

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Audit actions
const (
	ActionLogin            = "auth.login"
	ActionLogout           = "auth.logout"
	ActionPasswordChange   = "auth.password_change"
	ActionAuthFailed       = "auth.failed"
	ActionForbidden        = "auth.forbidden"
	ActionAnalyze          = "remediation.analyze"
	ActionRemediate        = "remediation.remediate"
	ActionFinish           = "remediation.finish"
	ActionRemediationFail  = "remediation.failed"
	ActionBatchCreate      = "batch.create"
	ActionBatchUpload      = "batch.upload"
	ActionBatchDownload    = "batch.download"
	ActionBatchClose       = "batch.close"
	ActionAssignmentCreate = "assignment.create"
	ActionAssignmentUpdate = "assignment.update"
	ActionAssignmentDelete = "assignment.delete"
	ActionSettingsUpdate   = "settings.update"
)

// WebSocket channels
const (
	ChannelRemediation = "remediation"
	ChannelBatch       = "batch"
)

// Setting keys
const (
	SettingNotifySlackToken     = "notify_slack_token"
	SettingNotifySlackChannelID = "notify_slack_channel_id"
	SettingNotifyDiscordToken   = "notify_discord_token"
	SettingNotifyDiscordChannel = "notify_discord_channel_id"
	SettingNotifyTelegramToken  = "notify_telegram_token"
	SettingNotifyTelegramChatID = "notify_telegram_chat_id"
	SettingNotifyWebhookURL     = "notify_webhook_url"
	SettingNotifyWebhookMethod  = "notify_webhook_method"
	SettingNotifyWebhookHeaders = "notify_webhook_headers"
	SettingNotifyWebhookTmpl    = "notify_webhook_template"
	SettingDemoFallback         = "remediation_demo_fallback"
)

// PreferenceKey builds the per-user settings key for a UI preference.
func PreferenceKey(userID uint, name string) string {
	return "pref." + strconv.FormatUint(uint64(userID), 10) + "." + name
}
