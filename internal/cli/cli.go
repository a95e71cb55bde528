package cli

import (
	"AccessDeck/internal/commands"
	"AccessDeck/internal/i18n"
	"AccessDeck/internal/output"
	"AccessDeck/internal/version"
	"AccessDeck/internal/webconfig"

	"github.com/spf13/cobra"
)

// Run executes the command line and returns the process exit code. Running
// without a subcommand starts the web dashboard.
func Run(args []string) int {
	if err := i18n.Init(); err != nil {
		output.Errorf("i18n: %v\n", err)
	}
	i18n.SetLanguage(i18n.DetectSystemLanguage())

	if cfg, err := webconfig.Load(); err == nil {
		output.SetDebug(cfg.IsDebug())
		output.Debugf("%s\n", i18n.T(i18n.MsgCliConfigLoaded, map[string]interface{}{
			"Path": webconfig.ConfigPath(),
			"Mode": cfg.Log.Mode,
		}))
	}

	code := 0
	root := newRootCmd(&code)
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	if err := root.Execute(); err != nil {
		output.Errorf("%s\n", i18n.T(i18n.MsgCliError, map[string]interface{}{"Error": err.Error()}))
		if code == 0 {
			code = 2
		}
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	var serveOpts commands.ServeOptions

	root := &cobra.Command{
		Use:           "accessdeck",
		Short:         i18n.T(i18n.MsgCliShort),
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = commands.RunServe(serveOpts)
			return nil
		},
	}
	root.SetVersionTemplate("AccessDeck {{.Version}} (build " + version.Build + ")\n")
	bindServeFlags(root, &serveOpts)

	serve := &cobra.Command{
		Use:   "serve",
		Short: i18n.T(i18n.MsgCliServeShort),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = commands.RunServe(serveOpts)
			return nil
		},
	}
	bindServeFlags(serve, &serveOpts)

	var checkOpts commands.CheckOptions
	check := &cobra.Command{
		Use:   "check <file>",
		Short: i18n.T(i18n.MsgCliCheckShort),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkOpts.File = args[0]
			checkOpts.Ask = !cmd.Flags().Changed("remediate")
			*code = commands.Check(checkOpts)
			return nil
		},
	}
	check.Flags().BoolVar(&checkOpts.Remediate, "remediate", false, i18n.T(i18n.MsgCliFlagRemediate))
	check.Flags().BoolVar(&checkOpts.NoRecheck, "no-recheck", false, i18n.T(i18n.MsgCliFlagNoRecheck))
	check.Flags().BoolVar(&checkOpts.JSON, "json", false, i18n.T(i18n.MsgCliFlagJSON))

	var doctorJSON bool
	doctor := &cobra.Command{
		Use:   "doctor",
		Short: i18n.T(i18n.MsgCliDoctorShort),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = commands.Doctor(doctorJSON)
			return nil
		},
	}
	doctor.Flags().BoolVar(&doctorJSON, "json", false, i18n.T(i18n.MsgCliFlagJSON))

	reset := &cobra.Command{
		Use:   "reset-password <username> [new-password]",
		Short: i18n.T(i18n.MsgCliResetShort),
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) > 1 {
				password = args[1]
			}
			*code = commands.ResetPassword(args[0], password)
			return nil
		},
	}

	settings := &cobra.Command{
		Use:   "settings",
		Short: i18n.T(i18n.MsgCliSettingsShort),
	}
	settings.AddCommand(&cobra.Command{
		Use:   "show",
		Short: i18n.T(i18n.MsgCliSettingsShort),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = commands.SettingsShow()
			return nil
		},
	})

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T(i18n.MsgCliVersionShort),
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			output.Printf("AccessDeck %s (build %s, backend api %s)\n", version.Version, version.Build, version.BackendAPI)
		},
	}

	root.AddCommand(serve, check, doctor, reset, settings, versionCmd)
	return root
}

func bindServeFlags(cmd *cobra.Command, opts *commands.ServeOptions) {
	f := cmd.Flags()
	f.IntVarP(&opts.Port, "port", "p", 0, i18n.T(i18n.MsgCliFlagPort))
	f.StringVarP(&opts.Bind, "bind", "b", "", i18n.T(i18n.MsgCliFlagBind))
	f.StringVarP(&opts.User, "user", "u", "", i18n.T(i18n.MsgCliFlagUser))
	f.StringVar(&opts.Password, "password", "", i18n.T(i18n.MsgCliFlagPassword))
	f.BoolVar(&opts.Debug, "debug", false, i18n.T(i18n.MsgCliFlagDebug))
}
