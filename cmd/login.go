package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/kanban/internal/launchpad"
)

var loginForce bool

// loginInput is where login waits for the user to confirm, replaceable in tests.
var loginInput io.Reader = os.Stdin

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize kanban to read Launchpad on your behalf",
	Long: `Create an OAuth token for the Launchpad API.

kanban prints a Launchpad page to open in a browser. Once access is
approved there, press Enter and the token is saved in the config file.
Anonymous access works for public bugs; a token is needed for private ones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return loginRun()
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Replace existing credentials")
	rootCmd.AddCommand(loginCmd)
}

func loginRun() error {
	if viper.GetString("launchpad.oauth_token") != "" && !loginForce {
		return fmt.Errorf("launchpad credentials already exist (use --force to replace them)")
	}

	cfgPath := viper.ConfigFileUsed()
	if cfgPath == "" {
		p, err := configFilePath()
		if err != nil {
			return err
		}
		cfgPath = p
	}

	if dryRun {
		ui.DryRunMsg("Would request a Launchpad token and save it to %s", cfgPath)
		return nil
	}

	ctx := cmdContext()
	auth := launchpad.NewAuthorizer(viper.GetString("launchpad.web_root"), viper.GetString("launchpad.consumer_key"))
	tok, err := auth.RequestToken(ctx)
	if err != nil {
		return err
	}

	ui.Info("Open this page and allow kanban to read Launchpad:")
	fmt.Fprintf(ui.Out, "\n  %s\n\n", auth.AuthorizeURL(tok))
	fmt.Fprint(ui.Out, "Press Enter once access is approved... ")
	if _, err := bufio.NewReader(loginInput).ReadString('\n'); err != nil && err != io.EOF {
		return fmt.Errorf("read confirmation: %w", err)
	}
	fmt.Fprintln(ui.Out)

	creds, err := auth.AccessToken(ctx, tok)
	if err != nil {
		return err
	}

	viper.Set("launchpad.consumer_key", creds.ConsumerKey)
	viper.Set("launchpad.oauth_token", creds.OAuthToken)
	viper.Set("launchpad.oauth_token_secret", creds.OAuthTokenSecret)

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	viper.SetConfigPermissions(0600)
	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Launchpad credentials saved to %s", cfgPath)
	return nil
}
