package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"AccessDeck/internal/cache"
	"AccessDeck/internal/database"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/logger"
	"AccessDeck/internal/netutil"
	"AccessDeck/internal/output"
	"AccessDeck/internal/prompt"
	"AccessDeck/internal/remediation"
	"AccessDeck/internal/webconfig"
)

type CheckOptions struct {
	File      string
	Remediate bool
	// Ask prompts for remediation when Remediate was not given explicitly.
	Ask       bool
	NoRecheck bool
	JSON      bool
}

// Check analyzes one document against the configured backend and optionally
// saves the remediated copy next to it. Runs live in an in-memory database.
func Check(opts CheckOptions) int {
	cfg, err := webconfig.Load()
	if err != nil {
		output.Debugf("config: %v\n", err)
		cfg = webconfig.Default()
		cfg.Normalize()
	}
	logger.Init(cfg.Log)

	data, err := os.ReadFile(opts.File)
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	base := filepath.Base(opts.File)
	if _, err := remediation.DetectKind(base, ""); err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCheckUnsupported, map[string]interface{}{"File": base}))
		return 2
	}

	if err := database.InitMemory(); err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	defer database.Close()

	workDir, err := os.MkdirTemp("", "accessdeck-check-*")
	if err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
		return 1
	}
	defer os.RemoveAll(workDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backendURL := pickBackend(ctx, cfg.Backend)
	output.Debugf("backend: %s\n", backendURL)

	svc := remediation.NewService(remediation.NewClient(backendURL, cfg.Backend), cache.NewMemory(), remediation.ServiceConfig{
		StorageDir:   workDir,
		CacheTTL:     cfg.Cache.TTL,
		DemoFallback: func() bool { return cfg.Remediation.DemoFallback },
	})
	actor := remediation.Actor{ID: 1, Username: "cli"}

	if !opts.JSON {
		output.Println(output.Colorize("dim", i18n.T(i18n.MsgCheckAnalyzing, map[string]interface{}{"File": base})))
	}
	view, err := svc.Analyze(ctx, actor, remediation.Upload{Name: base, Data: data})
	if err != nil {
		return checkFailed(err)
	}
	if !opts.JSON {
		printView(view)
	}

	remediate := opts.Remediate
	if !remediate && opts.Ask && !opts.JSON && prompt.IsInteractive() && len(view.Fixed) > 0 {
		remediate, err = prompt.AskBool(i18n.T(i18n.MsgCheckAskRemediate), true)
		if err != nil {
			return checkFailed(err)
		}
	}

	if remediate {
		view, err = svc.Remediate(ctx, actor, view.Run.ID, !opts.NoRecheck)
		if err != nil {
			return checkFailed(err)
		}
		saved, err := saveRemediated(svc, actor, view.Run.ID, filepath.Dir(opts.File), base)
		if err != nil {
			return checkFailed(err)
		}
		if !opts.JSON {
			if rec := view.Reconciliation; rec != nil {
				output.Println(i18n.T(i18n.MsgCheckReconciled, map[string]interface{}{
					"Confirmed": rec.Counts.Confirmed,
					"Estimated": rec.Counts.Estimated,
					"Remaining": rec.Counts.Remaining,
				}))
			}
			if view.Run.Error != "" {
				output.Println(output.Colorize("warning", view.Run.Error))
			}
			output.Println(output.Colorize("success", i18n.T(i18n.MsgCheckSaved, map[string]interface{}{"Path": saved})))
		}
	}

	if opts.JSON {
		raw, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return checkFailed(err)
		}
		output.Println(string(raw))
	}
	return 0
}

// pickBackend probes the configured base URLs and falls back to the first.
func pickBackend(ctx context.Context, cfg webconfig.BackendConfig) string {
	pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	url, err := netutil.BackendURL(pctx, netutil.NewBackendSelector(cfg.BaseURLs, 5*time.Second))
	if err != nil && len(cfg.BaseURLs) > 0 {
		return cfg.BaseURLs[0]
	}
	return url
}

func printView(view *remediation.RunView) {
	output.Println(output.Colorize("title", i18n.T(i18n.MsgCheckSummary, map[string]interface{}{
		"File":   view.Run.FileName,
		"Type":   view.Run.FileType,
		"Passed": view.Summary.SuccessCount,
		"Failed": view.Summary.FailedCount,
		"Manual": view.Summary.ManualCheckCount,
	})))
	printIssues(i18n.T(i18n.MsgCheckFixed), "success", view.Fixed)
	printIssues(i18n.T(i18n.MsgCheckFlagged), "warning", view.Flagged)
	if view.UnblockCommand != "" {
		output.Println(output.Colorize("warning", i18n.T(i18n.MsgCheckProtected, map[string]interface{}{"Command": view.UnblockCommand})))
	}
	if view.Run.Mock {
		output.Println(output.Colorize("accent", i18n.T(i18n.MsgCheckMockNotice)))
	}
}

func printIssues(title, style string, issues []remediation.Issue) {
	if len(issues) == 0 {
		return
	}
	output.Println(output.Colorize(style, fmt.Sprintf("%s (%d)", title, len(issues))))
	for _, is := range issues {
		if is.Category != "" {
			output.Printf("  - %s %s\n", output.Colorize("dim", "["+is.Category+"]"), is.Message)
			continue
		}
		output.Printf("  - %s\n", is.Message)
	}
}

// saveRemediated copies the remediated blob into dir without overwriting the
// input or an existing file.
func saveRemediated(svc *remediation.Service, actor remediation.Actor, runID uint, dir, inputName string) (string, error) {
	name, src, err := svc.RemediatedFile(actor, runID)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	if name == "" || name == inputName {
		name = "remediated-" + inputName
	}
	dest := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
			break
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func checkFailed(err error) int {
	output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
	return 1
}
