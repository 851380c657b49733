/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"overlaykit/internal/config"
	"overlaykit/internal/crash"
	"overlaykit/internal/export"
	applog "overlaykit/internal/log"
	"overlaykit/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "overlaykit: text overlays composited onto images")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  overlaykit render [-layers f] [-format png|jpeg|pdf] [-quality n] [-out dir] <image>")
	fmt.Fprintln(w, "  overlaykit copy [-layers f] [-base64] [-format f] [-quality n] <image>")
	fmt.Fprintln(w, "  overlaykit share [-layers f] <image>")
	fmt.Fprintln(w, "  overlaykit open-link [-param img] [-out dir] <link|->")
	fmt.Fprintln(w, "  overlaykit layers [-image img] [-o out.yaml] <layers.yaml>")
	fmt.Fprintln(w, "  overlaykit place -layers f [-layer n] [-preview w] -by dx,dy [-o out.yaml] <image>")
	fmt.Fprintln(w, "  overlaykit edit [-layers f] <image>              (requires a -tags fyne build)")
	fmt.Fprintln(w, "  overlaykit fonts")
	fmt.Fprintln(w, "  overlaykit version|-v|--version")
}

func main() {
	cfg, cerr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	if cerr != nil {
		applog.WithComponent("cli").Warn("config not loaded, using defaults", slog.Any("err", cerr))
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, cfg, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// usageError marks command-line mistakes; they exit with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{msg: fmt.Sprintf(format, a...)} }

// run executes one command and returns the process exit status.
func run(ctx context.Context, cfg config.AppConfig, args []string, stdin io.Reader, stdout, stderr io.Writer, clip export.Clipboard) int {
	a := newApp(cfg, stdin, stdout, stderr, clip)
	defer crash.Recover(a.store, "")

	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	a.log.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)-1))

	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "render":
		err = a.cmdRender(ctx, args[1:])
	case "copy":
		err = a.cmdCopy(ctx, args[1:])
	case "share":
		err = a.cmdShare(ctx, args[1:])
	case "open-link":
		err = a.cmdOpenLink(ctx, args[1:])
	case "layers":
		err = a.cmdLayers(ctx, args[1:])
	case "place":
		err = a.cmdPlace(ctx, args[1:])
	case "edit":
		err = a.cmdEdit(args[1:])
	case "fonts":
		err = a.cmdFonts(args[1:])
	default:
		err = usagef("unknown command %q", args[0])
	}
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, "Error:", err)
		usage(stderr)
		return 2
	}
	a.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}
