package commands

import (
	"strings"

	"AccessDeck/internal/i18n"
	"AccessDeck/internal/output"
	"AccessDeck/internal/webconfig"
)

func SettingsShow() int {
	path := webconfig.ConfigPath()
	cfg, err := webconfig.Load()
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgServeConfigLoadFailed, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	output.Println(output.Colorize("title", i18n.T(i18n.MsgSettingsTitle)))
	output.Println(i18n.T(i18n.MsgSettingsPath, map[string]interface{}{"Path": path}))
	output.Println(i18n.T(i18n.MsgSettingsMode, map[string]interface{}{"Mode": cfg.Log.Mode}))
	output.Println(i18n.T(i18n.MsgSettingsBackend, map[string]interface{}{"URLs": strings.Join(cfg.Backend.BaseURLs, ", ")}))
	output.Println(i18n.T(i18n.MsgSettingsDatabase, map[string]interface{}{"Driver": cfg.Database.Driver}))
	return 0
}
