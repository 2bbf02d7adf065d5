package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/RyanBlaney/sonido-denoise/report"
)

var (
	version = "0.1.0"
)

// Globals are flags shared by every command
type Globals struct {
	Config   string `short:"c" type:"path" help:"Path to YAML config file (optional)"`
	LogLevel string `name:"log-level" help:"Override the configured log level (debug, info, warn, error)"`
	Color    bool   `help:"Colorize log output"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Process    ProcessCmd `cmd:"" help:"Denoise every file in a directory with one method"`
	Compare    CompareCmd `cmd:"" help:"Run every configured method and rank them"`
	ShowConfig ConfigCmd  `cmd:"" name:"config" help:"Print the effective configuration as YAML"`
	Version    VersionCmd `cmd:"" help:"Show version information"`
}

// VersionCmd prints the version
type VersionCmd struct{}

func (v *VersionCmd) Run(_ *Globals) error {
	fmt.Println(report.TitleStyle.Render("sonido-denoise"))
	fmt.Printf("%s %s\n", report.KeyStyle.Render("Version:"), version)
	return nil
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("sonido-denoise"),
		kong.Description("Speech denoising with spectral subtraction and wavelet thresholding"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}
