package main

import (
	"io"

	"notelinks/internal/config"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("notelinks")

type app struct {
	in  io.Reader
	out io.Writer

	root      string
	approval  string
	verbosity int
	logfile   string

	cfg config.Config
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	cmd := &cobra.Command{
		Use:   "notelinks",
		Short: "Keep wiki link aliases in line with note titles",
		Long: `notelinks rewrites [[link|alias]] wiki links in Markdown notes so that
the alias shows the current title of the linked note.

Settings are read from .notelinks.yaml in the vault root and from
NOTELINKS_* environment variables; flags take precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.root, "root", ".", "vault root")
	flags.StringVar(&a.approval, "approval", "", "approval mode: auto, prompt or never")
	flags.CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity")
	flags.StringVar(&a.logfile, "logfile", "", "path to log file")

	cmd.AddCommand(
		a.newServeCmd(),
		a.newSyncCmd(),
		a.newWatchCmd(),
		a.newVersionCmd(),
	)
	return cmd
}

// setup configures logging and loads the config of the vault.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var path *string
	if a.logfile != "" {
		path = &a.logfile
	}
	commonlog.Configure(a.verbosity, path)

	v := config.NewViper(a.root)
	root := cmd.Flags().Lookup("root")
	if root.Changed {
		if err := v.BindPFlag("root", root); err != nil {
			return err
		}
	}
	if approval := cmd.Flags().Lookup("approval"); approval.Changed {
		if err := v.BindPFlag("approval", approval); err != nil {
			return err
		}
	}

	cfg, err := config.LoadViper(v)
	if err != nil {
		return err
	}
	if cfg.Root == "." {
		cfg.Root = a.root
	}
	a.cfg = cfg
	log.Debugf("config: %+v", cfg)
	return nil
}
