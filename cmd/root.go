/*
Copyright © 2025 Andrew Melnick meln5674.5674@gmail.com
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meln5674/tinysite/pkg/render"
	"github.com/meln5674/tinysite/pkg/server"
	"github.com/meln5674/tinysite/pkg/site"
	"github.com/meln5674/tinysite/pkg/static"
)

// EnvPrefix is prepended to every environment variable read by Options.
const EnvPrefix = "TINYSITE_"

// Options configure the site. Environment variables are read first, and any
// flag given on the command line wins over them.
type Options struct {
	Listen  string `env:"LISTEN" envDefault:":3000"`
	Views   string `env:"VIEWS"`
	Public  string `env:"PUBLIC"`
	Edition string `env:"EDITION" envDefault:"users"`
	About   string `env:"ABOUT"`
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tinysite",
	Short: "Small server-rendered site with static assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		return run(ctx, cmd.OutOrStdout(), opts)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().String("listen", ":3000", "Address:port to listen on")
	rootCmd.Flags().String("views", "", "Directory of page templates. Relative paths are resolved against the executable's directory. Defaults to the built-in views")
	rootCmd.Flags().String("public", "", "Directory of static assets. Relative paths are resolved against the executable's directory. Defaults to the built-in assets")
	rootCmd.Flags().String("edition", string(site.DefaultEdition), "Which revision of the site to serve (greeting, links, users)")
	rootCmd.Flags().String("about", "", "Text shown on the about page")
}

func loadOptions(cmd *cobra.Command) (Options, error) {
	var opts Options
	if err := env.ParseWithOptions(&opts, env.Options{Prefix: EnvPrefix}); err != nil {
		return Options{}, fmt.Errorf("failed to read environment: %w", err)
	}
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"listen":  &opts.Listen,
		"views":   &opts.Views,
		"public":  &opts.Public,
		"edition": &opts.Edition,
		"about":   &opts.About,
	} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return Options{}, err
		}
		*dst = value
	}
	return opts, nil
}

func run(ctx context.Context, out io.Writer, opts Options) error {
	handler, err := newServer(opts)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Listen, err)
	}
	fmt.Fprintf(out, "App now listening on port %d\n", listener.Addr().(*net.TCPAddr).Port)
	slog.Info("listening", "addr", listener.Addr().String(), "edition", handler.Edition)

	srv := http.Server{
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	err = srv.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func newServer(opts Options) (*server.Server, error) {
	edition, err := site.ParseEdition(opts.Edition)
	if err != nil {
		return nil, err
	}
	content := site.Default()
	content.About = opts.About

	views, err := openTree(opts.Views, site.Views)
	if err != nil {
		return nil, err
	}
	templates, err := render.New(views)
	if err != nil {
		return nil, fmt.Errorf("failed to load views: %w", err)
	}
	slog.Info("loaded views", "pages", templates.Names())

	cfg := server.Config{
		Edition:  edition,
		Content:  content,
		Renderer: templates,
	}
	if edition.ServesAssets() {
		public, err := openTree(opts.Public, site.Public)
		if err != nil {
			return nil, err
		}
		assets, err := static.Load(public)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded static assets", "files", assets.Len(), "size", humanize.Bytes(uint64(assets.Size())))
		cfg.Assets = assets
	}

	return server.New(cfg), nil
}

// openTree opens dir, or the built-in tree when dir is empty.
func openTree(dir string, builtin func() fs.FS) (fs.FS, error) {
	if dir == "" {
		return builtin(), nil
	}
	if !filepath.IsAbs(dir) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		dir = filepath.Join(filepath.Dir(exe), dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}
