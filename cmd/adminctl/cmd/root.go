package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/yanizio/eyegonal/internal/auth"
	"github.com/yanizio/eyegonal/internal/client"
	"github.com/yanizio/eyegonal/internal/logger"
	"github.com/yanizio/eyegonal/internal/session"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

type options struct {
	server      string
	apiKey      string
	sessionFile string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Sign in to the Eyegonal back office from a terminal",
		Long: `adminctl verifies administrator credentials against the Eyegonal
authentication service and keeps the resulting session in a local file.
Sessions expire 24 hours after sign-in.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			l, err := logger.Console(level)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(l)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("EYEGONAL_URL", "http://localhost:8080"), "authentication service base URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("EYEGONAL_API_KEY"), "value for the apikey header")
	root.PersistentFlags().StringVar(&opts.sessionFile, "session-file", defaultSessionFile(), "session storage file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newHashPasswordCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withAuth opens the session file, builds a consumer, and closes the file
// when fn returns.
func withAuth(opts *options, fn func(*auth.Auth) error) error {
	slot, err := session.OpenBoltSlot(opts.sessionFile)
	if err != nil {
		return err
	}
	defer slot.Close()

	var copts []client.Option
	if opts.apiKey != "" {
		copts = append(copts, client.WithAPIKey(opts.apiKey))
	}
	a := auth.New(client.New(opts.server, copts...), session.NewManager(slot))
	a.Init()
	return fn(a)
}

// promptPassword reads without echo from a terminal, or one line otherwise.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(pw), err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "eyegonal", "session.db")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
