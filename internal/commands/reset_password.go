package commands

import (
	"errors"

	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/output"
	"AccessDeck/internal/prompt"
	"AccessDeck/internal/webconfig"

	"golang.org/x/crypto/bcrypt"
)

// ResetPassword sets a new password for username. The password is read from
// the terminal when not given.
func ResetPassword(username, newPassword string) int {
	if username == "" {
		output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordUsage))
		return 2
	}
	if newPassword == "" {
		if !prompt.IsInteractive() {
			output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordUsage))
			return 2
		}
		pw, err := prompt.AskPassword()
		if errors.Is(err, prompt.ErrPasswordMismatch) {
			output.Errorf("%s\n", i18n.T(i18n.MsgPromptPasswordMismatch))
			return 1
		}
		if err != nil {
			output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordFailed, map[string]interface{}{"Error": err.Error()}))
			return 1
		}
		newPassword = pw
	}

	if len(newPassword) < 6 {
		output.Errorf("%s\n", i18n.T(i18n.MsgServePasswordTooShort))
		return 1
	}

	cfg, err := webconfig.Load()
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgServeConfigLoadFailed, map[string]interface{}{"Error": err.Error()}))
		return 1
	}

	logger.Init(cfg.Log)

	if err := database.Init(cfg.Database, false); err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordFailed, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	defer database.Close()

	repo := database.NewUserRepo()
	user, err := repo.FindByUsername(username)
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordUserNotFound, map[string]interface{}{"Username": username}))
		return 1
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordFailed, map[string]interface{}{"Error": err.Error()}))
		return 1
	}

	if err := repo.UpdatePassword(user.ID, string(hash)); err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgResetPasswordFailed, map[string]interface{}{"Error": err.Error()}))
		return 1
	}

	output.Println(output.Colorize("success", i18n.T(i18n.MsgResetPasswordSuccess, map[string]interface{}{"Username": username})))
	return 0
}
