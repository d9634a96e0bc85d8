package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui"
	"github.com/vuuvv/rplcui/config"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/present"
	"github.com/vuuvv/rplcui/session"
	"go.uber.org/zap"
)

var (
	configPath   string
	logLevel     string
	address      string
	compilerPath string
	outputDir    string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rplcui",
		Short:         "Packet definition editor for the rplc compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&compilerPath, "compiler", "", "Path to the rplc compiler binary")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the web editor",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serve.Flags().StringVarP(&address, "addr", "a", "", "Listen address, overrides server.address")

	compile := &cobra.Command{
		Use:   "compile <packet.json|packet.yaml>",
		Short: "Validate and compile a packet definition without the editor",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	compile.Flags().StringVarP(&outputDir, "out", "o", ".", "Directory for the generated header")

	root.AddCommand(serve, compile)
	return root
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if compilerPath != "" {
		cfg.Compiler.Path = compilerPath
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if err = rplcui.Setup(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := rplcui.NewBridge(cfg)
	b.Start(ctx)

	server := rplcui.NewServer(cfg, b)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Signal received, shutting down")
	}
	if err = server.Stop(); err != nil {
		return err
	}
	return <-errCh
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "read %s", args[0])
	}
	packet, err := core.Decode(text)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b := rplcui.NewBridge(cfg)
	b.Start(ctx)
	if err = b.WaitReady(ctx); err != nil {
		return errors.Wrap(err, "compiler is not available")
	}

	out := cmd.ErrOrStderr()
	for _, v := range core.DefaultValidator().Validate(&packet) {
		_, _ = fmt.Fprintf(out, "invalid %s: %s\n", v.Path, v.Message)
	}

	s := session.New(ctx, b, packet)
	s.SetTimeout(cfg.Compiler.Timeout)
	defer s.Close()

	view := s.Compile()
	for _, w := range view.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range view.Errors {
		_, _ = fmt.Fprintf(out, "error: %s\n", e)
	}
	if !view.CanSave {
		return errors.Errorf("%s: compilation failed with %d error(s)", args[0], len(view.Errors))
	}
	if err = s.Save(&present.FileSaver{Dir: outputDir}); err != nil {
		return err
	}
	log.Info("Compiled", zap.String("input", args[0]), zap.String("output", view.Filename))
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
