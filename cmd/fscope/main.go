package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"fscope/internal/app"
	"fscope/internal/config"
	"fscope/internal/fs"
	"fscope/internal/fscope"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps move failures onto distinct exit statuses so scripts can
// tell them apart.
func exitCode(err error) int {
	switch {
	case errors.Is(err, fscope.ErrDestinationExists):
		return 3
	case errors.Is(err, fscope.ErrInvalidMove):
		return 4
	case errors.Is(err, fscope.ErrAccessDenied):
		return 5
	default:
		return 1
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Move", "AddBookmark").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewApp(cfg, operation, verbose)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// newTable returns a writer that aligns columns when stdout is a terminal
// and emits plain tab-separated lines otherwise.
func newTable() (io.Writer, func() error) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		return tw, tw.Flush
	}
	return os.Stdout, func() error { return nil }
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

var rootCmd = &cobra.Command{
	Use:          "fscope",
	Short:        "File browser core",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir, fs.DefaultIgnorePatterns)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Show Hidden: %t\n", cfg.Browser.ShowHidden)
		fmt.Printf("Latency:     %s\n", cfg.Monitor.Latency())
		fmt.Printf("Ignore:      %s\n", strings.Join(cfg.Monitor.Ignore, ", "))
		fmt.Printf("Max Active:  %d\n", cfg.Access.MaxActive)
		fmt.Printf("Keys:        %s\n", cfg.Keys.Type)
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls [DIR]",
	Short: "List a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp(cmd, "ListDirectory")
		if err != nil {
			return err
		}
		defer a.Close()

		nodes, err := a.ListDirectory(cmd.Context(), targetArg(args), all)
		if err != nil {
			return err
		}

		w, flush := newTable()
		for _, n := range nodes {
			kind := "-"
			if n.IsDir() {
				kind = "d"
			}
			modified := "?"
			if t, err := n.ModTime(); err == nil {
				modified = t.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", kind, modified, n.Name())
		}
		return flush()
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Print change batches for a directory tree until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stream, err := a.Watch(ctx, targetArg(args))
		if err != nil {
			return err
		}
		defer stream.Cancel()

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			srv := &http.Server{Addr: addr, Handler: a.Metrics().Handler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		events := stream.Events()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return stream.Err()
				}
				a.Metrics().ObserveEvent(ev)
				fmt.Printf("%d\t%s\t%s\n", ev.ID, ev.Flags, ev.Path)
			case <-ctx.Done():
				return nil
			}
		}
	},
}

// bookmark command
var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Manage persistent location bookmarks",
}

var bookmarkAddCmd = &cobra.Command{
	Use:   "add NAME [PATH]",
	Short: "Bookmark a location",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "AddBookmark")
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.AddBookmark(cmd.Context(), args[0], targetArg(args[1:]))
		if err != nil {
			return fmt.Errorf("adding bookmark: %w", err)
		}

		fmt.Printf("Bookmarked %s as %q\n", b.Path, b.Name)
		return nil
	},
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListBookmarks")
		if err != nil {
			return err
		}
		defer a.Close()

		bookmarks, err := a.Bookmarks(cmd.Context())
		if err != nil {
			return err
		}

		if len(bookmarks) == 0 {
			fmt.Println("No bookmarks.")
			return nil
		}

		w, flush := newTable()
		for _, b := range bookmarks {
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.Path, b.RefreshedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return flush()
	},
}

var bookmarkOpenCmd = &cobra.Command{
	Use:   "open NAME",
	Short: "Resolve a bookmark to its current location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "OpenBookmark")
		if err != nil {
			return err
		}
		defer a.Close()

		opened, err := a.OpenBookmark(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if opened.Refreshed {
			fmt.Fprintf(os.Stderr, "bookmark %q was stale and has been refreshed\n", args[0])
		}
		fmt.Println(opened.Location.Path)
		return nil
	},
}

var bookmarkRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "RemoveBookmark")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveBookmark(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed bookmark %q\n", args[0])
		return nil
	},
}

// mv command
var mvCmd = &cobra.Command{
	Use:   "mv SOURCE DEST",
	Short: "Move or rename a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		check, _ := cmd.Flags().GetBool("check")

		if check {
			a, err := newApp(cmd, "CanMove")
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := a.CanMove(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s -> %s", fscope.ErrInvalidMove, args[0], args[1])
			}
			fmt.Println("ok")
			return nil
		}

		a, err := newApp(cmd, "Move")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Move(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		w, flush := newTable()
		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\t%s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return flush()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// bookmark subcommands
	bookmarkCmd.AddCommand(bookmarkAddCmd)
	bookmarkCmd.AddCommand(bookmarkListCmd)
	bookmarkCmd.AddCommand(bookmarkOpenCmd)
	bookmarkCmd.AddCommand(bookmarkRmCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolP("all", "a", false, "Include hidden entries")
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while watching")
	rootCmd.AddCommand(bookmarkCmd)
	rootCmd.AddCommand(mvCmd)
	mvCmd.Flags().Bool("check", false, "Only validate the move")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
