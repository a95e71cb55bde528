package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"AccessDeck/internal/cache"
	"AccessDeck/internal/database"
	"AccessDeck/internal/diagnostics"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/ocr/tesseract"
	"AccessDeck/internal/output"
	"AccessDeck/internal/webconfig"
)

// Doctor runs the environment checks and prints them. It returns 1 when any
// check reports an error.
func Doctor(asJSON bool) int {
	path := webconfig.ConfigPath()
	cfg, cfgErr := webconfig.Load()
	if cfgErr != nil {
		cfg = webconfig.Default()
	}

	opts := diagnostics.Options{
		Config:       cfg,
		ConfigPath:   path,
		ConfigErr:    cfgErr,
		OCRVersion:   tesseract.Version,
		DemoFallback: cfg.Remediation.DemoFallback,
		CheckDB:      true,
	}

	// A failed Init leaves the handle nil, which the database check reports.
	if err := database.Init(cfg.Database, false); err != nil {
		output.Debugf("database init: %v\n", err)
	}
	defer database.Close()

	c := cache.New(cfg.Cache)
	defer c.Close()
	opts.Cache = c

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report := diagnostics.Run(ctx, opts)

	if asJSON {
		data, _ := json.MarshalIndent(report, "", "  ")
		output.Println(string(data))
	} else {
		output.Println(renderReport(report))
	}

	if report.HasErrors {
		return 1
	}
	return 0
}

func renderReport(report diagnostics.Report) string {
	b := &strings.Builder{}
	fmt.Fprintln(b, output.Colorize("title", i18n.T(i18n.MsgDoctorTitle)))
	fmt.Fprintln(b, output.Colorize("dim", "===="))

	for _, c := range report.Checks {
		fmt.Fprintf(b, "%s %s\n", colorDoctorLevel(c.Level), c.Message)
		if c.Suggestion != "" {
			fmt.Fprintf(b, "  %s %s\n", output.Colorize("dim", i18n.T(i18n.MsgDoctorSuggestion)), c.Suggestion)
		}
	}
	if !report.HasErrors {
		fmt.Fprintln(b, output.Colorize("success", i18n.T(i18n.MsgDoctorAllGood)))
	}
	return b.String()
}

func colorDoctorLevel(level string) string {
	switch strings.TrimSpace(level) {
	case diagnostics.LevelOK:
		return output.Colorize("success", i18n.T(i18n.MsgDoctorLevelOK))
	case diagnostics.LevelError:
		return output.Colorize("danger", i18n.T(i18n.MsgDoctorLevelError))
	case diagnostics.LevelWarning:
		return output.Colorize("warning", i18n.T(i18n.MsgDoctorLevelWarning))
	case diagnostics.LevelInfo:
		return output.Colorize("accent", i18n.T(i18n.MsgDoctorLevelInfo))
	default:
		return "[" + level + "]"
	}
}
