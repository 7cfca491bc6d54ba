package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/kanban/internal/board"
	"github.com/joescharf/kanban/internal/health"
	"github.com/joescharf/kanban/internal/launchpad"
	"github.com/joescharf/kanban/internal/refresh"
	"github.com/joescharf/kanban/internal/render"
	"github.com/joescharf/kanban/internal/tracker"
)

// boardOptions are the flags shared by the board commands.
type boardOptions struct {
	outputFile          string
	format              string
	includeNeedsTesting bool
	offline             bool
	itemsFile           string
}

func addOutputFlags(cmd *cobra.Command, opts *boardOptions) {
	cmd.Flags().StringVarP(&opts.outputFile, "output-file", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&opts.format, "format", string(render.FormatHTML), "Output format: html, text, json or markdown")
}

func addBoardFlags(cmd *cobra.Command, opts *boardOptions) {
	addOutputFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.includeNeedsTesting, "include-needs-testing", false, "Show a separate needs-testing column")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the last fetched items instead of asking Launchpad")
	cmd.Flags().StringVar(&opts.itemsFile, "items", "", "Read work items from a YAML or JSON file instead of Launchpad")
}

// includeTesting applies the config default unless the flag was given.
func (o *boardOptions) includeTesting(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Changed("include-needs-testing") {
		return o.includeNeedsTesting
	}
	return viper.GetBool("board.include_needs_testing")
}

func thresholds(prefix string) health.Thresholds {
	return health.Thresholds{
		InProgress: viper.GetInt(prefix + ".in_progress_days"),
		Review:     viper.GetInt(prefix + ".review_days"),
	}
}

func newChecker() *health.Checker {
	c := health.NewChecker()
	c.Warn = thresholds("warn")
	c.Danger = thresholds("danger")
	return c
}

func newRenderer() *render.Renderer {
	return render.New(newChecker())
}

func launchpadClient() *launchpad.Client {
	return launchpad.New(launchpad.Config{
		ServiceRoot: viper.GetString("launchpad.service_root"),
		Credentials: launchpad.Credentials{
			ConsumerKey:      viper.GetString("launchpad.consumer_key"),
			OAuthToken:       viper.GetString("launchpad.oauth_token"),
			OAuthTokenSecret: viper.GetString("launchpad.oauth_token_secret"),
		},
		MaxConcurrency:    viper.GetInt("launchpad.max_concurrency"),
		RequestsPerSecond: viper.GetFloat64("launchpad.requests_per_second"),
		ReleasedWithin:    time.Duration(viper.GetInt("launchpad.released_within_days")) * 24 * time.Hour,
	})
}

// newSource returns where board items come from. Items read from a file
// are used as is; items from Launchpad are cached in the snapshot store.
func newSource(itemsFile string, offline bool) (*refresh.Cache, error) {
	if itemsFile != "" {
		if offline {
			return nil, fmt.Errorf("--offline and --items cannot be combined")
		}
		ui.VerboseLog("Reading work items from %s", itemsFile)
		return &refresh.Cache{Source: tracker.NewFileSource(itemsFile)}, nil
	}

	c := &refresh.Cache{
		Source:  launchpadClient(),
		Offline: offline,
		Keep:    viper.GetInt("snapshots.keep"),
	}
	s, err := getStore()
	if err != nil {
		if offline {
			return nil, err
		}
		ui.Warning("Snapshot cache unavailable: %v", err)
		return c, nil
	}
	c.Store = s
	return c, nil
}

// reportResult tells the user when a board was drawn from cached items.
func reportResult(r *refresh.Result) {
	if r.Cached {
		ui.Warning("Using items fetched %s", r.FetchedAt.Local().Format(time.RFC1123))
	}
	ui.VerboseLog("%d work items", len(r.Items))
}

func writeBoard(b *board.Board, opts *boardOptions) error {
	f, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	r := newRenderer()
	return writeOutput(opts.outputFile, func(w io.Writer) error {
		return r.Board(w, b, f)
	})
}

// writeOutput renders into path, or to stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(ui.Out)
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would write %d bytes to %s", buf.Len(), path)
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	ui.Success("Wrote %s", path)
	return nil
}
