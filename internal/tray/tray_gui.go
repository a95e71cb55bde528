//go:build windows

package tray

import (
	"os/exec"

	"AccessDeck/internal/i18n"

	"github.com/energye/systray"
)

// Run shows the tray icon and opens the dashboard in the browser. It blocks
// until the user quits from the tray menu.
func Run(addr string, onQuit func()) {
	url := BrowserURL(addr)

	systray.Run(func() {
		systray.SetIcon(generateIcon())
		systray.SetTitle("AccessDeck")
		systray.SetTooltip("AccessDeck - " + url)

		systray.SetOnClick(func(menu systray.IMenu) { openBrowser(url) })
		systray.SetOnDClick(func(menu systray.IMenu) { openBrowser(url) })
		systray.SetOnRClick(func(menu systray.IMenu) { menu.ShowMenu() })

		mOpen := systray.AddMenuItem(i18n.T(i18n.MsgTrayOpenWebUI), "Open dashboard")
		mOpen.Click(func() { openBrowser(url) })

		systray.AddSeparator()
		mAddr := systray.AddMenuItem(i18n.T(i18n.MsgTrayAddress, map[string]interface{}{"Url": url}), "")
		mAddr.Disable()
		systray.AddSeparator()

		mQuit := systray.AddMenuItem(i18n.T(i18n.MsgTrayQuit), "Quit")
		mQuit.Click(func() {
			if onQuit != nil {
				onQuit()
			}
			systray.Quit()
		})

		openBrowser(url)
	}, nil)
}

func HasGUI() bool {
	return true
}

func openBrowser(url string) {
	_ = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
}
