package i18n

// Message key constants to avoid hardcoded strings.
// Use these constants with T() or TLang() functions.

// API error messages
const (
	MsgErrInvalidParam        = "error.invalid_param"
	MsgErrInvalidBody         = "error.invalid_body"
	MsgErrNotFound            = "error.not_found"
	MsgErrUnauthorized        = "error.unauthorized"
	MsgErrForbidden           = "error.forbidden"
	MsgErrInternal            = "error.internal"
	MsgErrDBQuery             = "error.db_query"
	MsgErrRateLimited         = "error.rate_limited"
	MsgErrFileRequired        = "error.file_required"
	MsgErrFileTooLarge        = "error.file_too_large"
	MsgErrUnsupportedFile     = "error.unsupported_file"
	MsgErrBackendUnavailable  = "error.backend_unavailable"
	MsgErrBackendFailed       = "error.backend_failed"
	MsgErrInvalidTransition   = "error.invalid_transition"
	MsgErrNotRemediated       = "error.not_remediated"
	MsgErrNoFiles             = "error.no_files"
	MsgErrNoSession           = "error.no_session"
	MsgErrSessionCreateFailed = "error.session_create_failed"
	MsgErrBatchDownloadFailed = "error.batch_download_failed"
	MsgErrOCRFailed           = "error.ocr_failed"
	MsgErrImageTooLarge       = "error.image_too_large"
	MsgErrLoginFailed         = "error.login_failed"
	MsgErrPasswordTooShort    = "error.password_too_short"
	MsgErrPasswordMismatch    = "error.password_mismatch"
	MsgErrAssignmentRequired  = "error.assignment_required"
)

// CLI messages
const (
	MsgCliShort          = "cli.short"
	MsgCliServeShort     = "cli.serve_short"
	MsgCliCheckShort     = "cli.check_short"
	MsgCliDoctorShort    = "cli.doctor_short"
	MsgCliResetShort     = "cli.reset_password_short"
	MsgCliSettingsShort  = "cli.settings_short"
	MsgCliVersionShort   = "cli.version_short"
	MsgCliFlagPort       = "cli.flag_port"
	MsgCliFlagBind       = "cli.flag_bind"
	MsgCliFlagUser       = "cli.flag_user"
	MsgCliFlagPassword   = "cli.flag_password"
	MsgCliFlagDebug      = "cli.flag_debug"
	MsgCliFlagRemediate  = "cli.flag_remediate"
	MsgCliFlagNoRecheck  = "cli.flag_no_recheck"
	MsgCliFlagJSON       = "cli.flag_json"
	MsgCliError          = "cli.error"
	MsgCliConfigLoaded   = "cli.config_loaded"
	MsgCliTerminalNotice = "cli.terminal_notice"
)

// Serve messages
const (
	MsgServeConfigLoadFailed   = "serve.config_load_failed"
	MsgServeConfigSaveFailed   = "serve.config_save_failed"
	MsgServePortSaved          = "serve.port_saved"
	MsgServePasswordTooShort   = "serve.password_too_short"
	MsgServeUserCreated        = "serve.user_created"
	MsgServeUserExists         = "serve.user_exists"
	MsgServePortInUse          = "serve.port_in_use"
	MsgServeFirstTimeSetup     = "serve.first_time_setup"
	MsgServeUsernameLabel      = "serve.username_label"
	MsgServePasswordLabel      = "serve.password_label"
	MsgServeChangePasswordHint = "serve.change_password_hint"
	MsgServeBindAllWarning     = "serve.bind_all_warning"
	MsgServeHtmlIndexNotFound  = "serve.html_index_not_found"
)

// Log messages
const (
	MsgLogServeStarting       = "log.serve_starting"
	MsgLogDbInitFailed        = "log.db_init_failed"
	MsgLogWebServiceStarted   = "log.web_service_started"
	MsgLogShuttingDown        = "log.shutting_down"
	MsgLogServiceStopped      = "log.service_stopped"
	MsgLogServiceStartFailed  = "log.service_start_failed"
	MsgLogAdminAutoCreated    = "log.admin_auto_created"
	MsgLogBackendSelected     = "log.backend_selected"
	MsgLogBindNonLoopback     = "log.bind_non_loopback"
	MsgLogStorageInitFailed   = "log.storage_init_failed"
	MsgLogCacheRedis          = "log.cache_redis"
	MsgLogNotifyReloaded      = "log.notify_reloaded"
	MsgLogNotifySendFailed    = "log.notify_send_failed"
	MsgLogUserExitTray        = "log.user_exit_tray"
	MsgLogOCREngineReady      = "log.ocr_engine_ready"
	MsgLogKeepAliveFailed     = "log.keepalive_failed"
	MsgLogSessionExpired      = "log.session_expired"
	MsgLogDemoFallbackServing = "log.demo_fallback_serving"
)

// Reset password messages
const (
	MsgResetPasswordUsage        = "reset.usage"
	MsgResetPasswordSuccess      = "reset.success"
	MsgResetPasswordUserNotFound = "reset.user_not_found"
	MsgResetPasswordFailed       = "reset.failed"
)

// Doctor messages
const (
	MsgDoctorTitle              = "doctor.title"
	MsgDoctorAllGood            = "doctor.all_good"
	MsgDoctorConfigOK           = "doctor.config_ok"
	MsgDoctorConfigFailed       = "doctor.config_failed"
	MsgDoctorDbOK               = "doctor.db_ok"
	MsgDoctorDbFailed           = "doctor.db_failed"
	MsgDoctorBackendOK          = "doctor.backend_ok"
	MsgDoctorBackendFailed      = "doctor.backend_failed"
	MsgDoctorBackendSuggestion  = "doctor.backend_suggestion"
	MsgDoctorStorageOK          = "doctor.storage_ok"
	MsgDoctorStorageFailed      = "doctor.storage_failed"
	MsgDoctorTesseractOK        = "doctor.tesseract_ok"
	MsgDoctorTesseractMissing   = "doctor.tesseract_missing"
	MsgDoctorTesseractSuggest   = "doctor.tesseract_suggestion"
	MsgDoctorRedisOK            = "doctor.redis_ok"
	MsgDoctorRedisFailed        = "doctor.redis_failed"
	MsgDoctorJWTSecretWeak      = "doctor.jwt_secret_weak"
	MsgDoctorJWTSecretSuggest   = "doctor.jwt_secret_suggestion"
	MsgDoctorDemoFallbackActive = "doctor.demo_fallback_active"
	MsgDoctorLevelOK            = "doctor.level_ok"
	MsgDoctorLevelInfo          = "doctor.level_info"
	MsgDoctorLevelWarning       = "doctor.level_warning"
	MsgDoctorLevelError         = "doctor.level_error"
	MsgDoctorSuggestion         = "doctor.suggestion"
)

// Settings command messages
const (
	MsgSettingsTitle    = "settings.title"
	MsgSettingsPath     = "settings.path"
	MsgSettingsMode     = "settings.mode"
	MsgSettingsBackend  = "settings.backend"
	MsgSettingsDatabase = "settings.database"
)

// Check command messages
const (
	MsgCheckSummary      = "check.summary"
	MsgCheckFixed        = "check.fixed"
	MsgCheckFlagged      = "check.flagged"
	MsgCheckMockNotice   = "check.mock_notice"
	MsgCheckSaved        = "check.saved"
	MsgCheckReconciled   = "check.reconciled"
	MsgCheckProtected    = "check.protected"
	MsgCheckUnsupported  = "check.unsupported"
	MsgCheckAskRemediate = "check.ask_remediate"
	MsgCheckAnalyzing    = "check.analyzing"
)

// Prompt messages
const (
	MsgPromptDefaultYes       = "prompt.default_yes"
	MsgPromptDefaultNo        = "prompt.default_no"
	MsgPromptDefaultLabel     = "prompt.default_label"
	MsgPromptNewPassword      = "prompt.new_password"
	MsgPromptConfirmPassword  = "prompt.confirm_password"
	MsgPromptPasswordMismatch = "prompt.password_mismatch"
)

// Tray messages
const (
	MsgTrayOpenWebUI = "tray.open_web_ui"
	MsgTrayAddress   = "tray.address"
	MsgTrayQuit      = "tray.quit"
)

// Notification messages
const (
	MsgNotifyRunReconciled = "notify.run_reconciled"
	MsgNotifyRunEstimated  = "notify.run_estimated"
	MsgNotifyBatchUploaded = "notify.batch_uploaded"
)

// Help messages
const (
	MsgHelpUnblockTitle    = "help.unblock_title"
	MsgHelpProtectedBanner = "help.protected_banner"
)
