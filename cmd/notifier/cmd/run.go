package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/app"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/graph"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/hibp"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/notify"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/storage/sqlite"
)

var (
	suppressEmails bool
	ignoreBefore   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the breach check over all directory users",
	Long: `Verifies the Have I Been Pwned subscription, signs in to the directory
backend, then checks every user with a mail address for breaches. Newly
discovered breaches are stored and mailed to the affected user.

With --suppress-emails nothing is sent; the new breaches are printed instead.
With --ignore-before, breaches the source added before the given date are
still stored but not mailed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cutoff time.Time
		if ignoreBefore != "" {
			var err error
			cutoff, err = time.Parse("2006-01-02", ignoreBefore)
			if err != nil {
				return fmt.Errorf("parsing --ignore-before (want YYYY-MM-DD): %w", err)
			}
		}

		if cfg.TenantID == "" || cfg.ClientID == "" {
			return fmt.Errorf("GRAPH_TENANT_ID and GRAPH_CLIENT_ID must be set")
		}
		if err := ensureAPIKey(); err != nil {
			return err
		}

		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		tmpl, err := notify.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			return err
		}

		source := hibp.NewClient(hibp.DefaultBaseURL, cfg.APIKey, log)
		directory := graph.NewClient(cfg.TenantID, cfg.ClientID, os.Stdout, log)
		notifier := notify.NewNotifier(tmpl, directory, log)

		opts := app.Options{
			SuppressEmails: suppressEmails,
			IgnoreBefore:   cutoff,
		}

		a := app.New(opts, source, directory, store, notifier, os.Stdout, log)
		_, err = a.Run(cmd.Context())
		return err
	},
}

// ensureAPIKey prompts for the key when it is not configured and stdin is a
// terminal. The key is read without echo and never printed or logged.
func ensureAPIKey() error {
	if cfg.APIKey != "" {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("HIBP_API_KEY is not set")
	}

	fmt.Fprint(os.Stderr, "HIBP API key: ")
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("HIBP_API_KEY is not set")
	}

	cfg.APIKey = string(key)
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&suppressEmails, "suppress-emails", false, "print new breaches instead of emailing users")
	runCmd.Flags().StringVar(&ignoreBefore, "ignore-before", "", "store but do not notify about breaches added before this date (YYYY-MM-DD)")
	rootCmd.AddCommand(runCmd)
}
