package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Brownie44l1/steer-bridge/internal/bridge"
	"github.com/Brownie44l1/steer-bridge/internal/capture"
	"github.com/Brownie44l1/steer-bridge/internal/handlers"
	"github.com/Brownie44l1/steer-bridge/internal/model"
	"github.com/Brownie44l1/steer-bridge/internal/publish"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	// Ctrl+C and SIGTERM both end the loop cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, err := newRootCmd()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, error) {
	opts, err := defaultOptions()
	if err != nil {
		return nil, err
	}

	cmd := &cobra.Command{
		Use:           "steer-bridge",
		Short:         "Feed simulator captures to the steering model and publish the angle to the clipboard",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
	}
	opts.bindFlags(cmd)
	return cmd, nil
}

func run(ctx context.Context, opts options) error {
	dir, err := filepath.Abs(opts.CapturesDir)
	if err != nil {
		return fmt.Errorf("failed to resolve captures directory: %w", err)
	}

	log.Printf("Loading model from: %s", opts.ModelPath)

	modelServer, err := model.NewServer(opts.ModelPath, opts.MetadataPath, opts.ORTLib)
	if err != nil {
		return fmt.Errorf("failed to initialize model server: %w", err)
	}
	defer modelServer.Close()

	log.Printf("Model loaded: input %v, output %v", modelServer.Metadata.InputShape, modelServer.Metadata.OutputShape)

	console := log.New(os.Stdout, "", 0)

	watcher, err := capture.NewWatcher(dir, opts.CaptureName, opts.PollInterval)
	if err != nil {
		return err
	}
	defer watcher.Close()
	watcher.Logger = console

	hub := publish.NewHub()
	channel := publish.NewChannel(publish.Clipboard{}, hub)
	predictor := bridge.NewONNXPredictor(modelServer)

	if opts.HTTPAddr != "" {
		srv := startStatusServer(opts.HTTPAddr, handlers.NewHandler(predictor, channel, hub))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Status server shutdown: %v", err)
			}
		}()
	}

	loop := &bridge.Loop{
		Watcher:   watcher,
		Loader:    capture.Loader{Path: watcher.Path(), Consume: opts.Consume},
		Predictor: predictor,
		Channel:   channel,
		Logger:    console,
		Dir:       dir,
		Name:      opts.CaptureName,
		StalePath: watcher.Path(),
	}

	return finish(loop.Run(ctx), os.Stdout)
}

// finish turns an interrupt into a clean exit. Any other error is fatal and
// passed through.
func finish(err error, w io.Writer) error {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Exiting...")
		return nil
	}
	return err
}

func startStatusServer(addr string, handler *handlers.Handler) *http.Server {
	mux := http.NewServeMux()
	handler.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}

	log.Printf("Status server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("  GET  /health        - Health check")
	log.Println("  GET  /steer         - Last published steering value")
	log.Println("  POST /predict/image - Predict from image upload")
	log.Println("  GET  /ws            - Stream of published values")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Status server failed: %v", err)
		}
	}()
	return srv
}
