// Package main is an entrypoint for application
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"

	"github.com/Semior001/newsagg/app/cmd"
	"github.com/Semior001/newsagg/pkg/logx"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

var opts struct {
	Fetch cmd.Fetch `command:"fetch" description:"fetch, enrich and store articles once"`
	List  cmd.List  `command:"list" description:"print stored articles"`
	Stats cmd.Stats `command:"stats" description:"print distribution of stored articles"`
	Serve cmd.Serve `command:"serve" description:"run http api for stored articles"`

	JSONLogs bool `long:"json-logs" env:"JSON_LOGS" description:"turn on json logs"`
	Debug    bool `long:"dbg" env:"DEBUG" description:"turn on debug mode"`
}

var version = "unknown"

func getVersion() string {
	v, ok := debug.ReadBuildInfo()
	if !ok || v.Main.Version == "(devel)" {
		return version
	}
	return v.Main.Version
}

func main() {
	fmt.Printf("newsagg, version: %s\n", getVersion())

	// env file is optional, variables from the environment take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	p := flags.NewParser(&opts, flags.Default)
	p.CommandHandler = func(cmd flags.Commander, args []string) error {
		setupLog()

		if err := cmd.Execute(args); err != nil {
			slog.Error("failed to execute command", slog.Any("err", err))
			os.Exit(1)
		}

		return nil
	}

	// after failure command does not return non-zero code
	if _, err := p.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		} else {
			slog.Error("failed to parse flags", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func setupLog() {
	handler := slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	}

	if opts.Debug {
		handler.Level = slog.LevelDebug
		handler.AddSource = true
	}

	var h slog.Handler = handler.NewTextHandler(os.Stderr)
	if opts.JSONLogs {
		h = handler.NewJSONHandler(os.Stderr)
	}

	lg := slog.New(&logx.Chain{Middleware: []logx.Middleware{logx.RequestID}, Handler: h})
	slog.SetDefault(lg)
}
