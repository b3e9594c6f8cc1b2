package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/matjam/smoothtile/internal/cli/cmd/utils"
	"github.com/matjam/smoothtile/internal/engine"
	"github.com/matjam/smoothtile/internal/ipc"
	"github.com/matjam/smoothtile/internal/metadata"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
)

func NewStartCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "start",
		Short: "Start the viewer daemon",
		Long: `Fetches the item metadata, renders the image on the headless tile
engine and serves the control socket used by the frame, scrub, status
and stop commands.`,
		Run: func(c *cobra.Command, args []string) {
			if background, _ := c.Flags().GetBool("background"); background {
				daemonize()
				return
			}
			StartViewer()
		},
	}
	c.Flags().BoolP("background", "b", false, "Run as a daemon")
	return c
}

func daemonize() {
	cntxt := &daemon.Context{
		PidFileName: filepath.Join(filepath.Dir(ipc.SocketPath()), "smoothtile.pid"),
		PidFilePerm: 0644,
		WorkDir:     "/",
		Umask:       027,
		Env:         append(os.Environ(), "BACKGROUND_PROCESS=1"),
	}

	child, err := cntxt.Reborn()
	if err != nil {
		log.Fatalf("Failed to run in background: %v", err)
	}
	if child != nil {
		log.Infof("smoothtile started in background, PID %d", child.Pid)
		return
	}
	defer cntxt.Release()

	StartViewer()
}

func StartViewer() {
	log.Infof("StartViewer() started in PID: %d", os.Getpid())

	if os.Getenv("BACKGROUND_PROCESS") == "1" {
		setupRotatingLogger()
	}

	if _, err := ipc.SendStatus(); err == nil {
		log.Infof("smoothtile is already running, exiting")
		os.Exit(0)
	}

	cfg, err := utils.LoadViewerConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := metadata.NewProvider(cfg.Server, cfg.Token, cfg.Timeout())
	defer provider.Close()

	log.Infof("Fetching metadata for item %s from %s", cfg.Item, cfg.Server)
	meta, err := provider.Fetch(ctx, cfg.Item)
	if err != nil {
		log.Fatalf("Failed to fetch metadata: %v", err)
	}
	log.Infof("Image is %dx%d with %d levels and %d frames", meta.SizeX, meta.SizeY, meta.Levels, meta.NumFrames())

	manager := ipc.NewManager(cfg.Item, meta, provider.TileURL(cfg.Item, cfg.TilePath),
		ipc.HeadlessEngine(meta, engine.Options{
			Client:        provider.Client(),
			CacheBytes:    cfg.CacheBytes,
			PrefetchLevel: cfg.PrefetchLevel,
		}))

	go func() {
		log.Infof("Starting socket server on %s", ipc.SocketPath())
		if err := ipc.Start(ctx, manager); err != nil {
			log.Errorf("Socket server error: %v", err)
			stop()
		}
	}()

	manager.Run(ctx)
	stop()

	os.Remove(ipc.SocketPath())
	log.Infof("smoothtile exited")
}

func setupRotatingLogger() {
	home := os.Getenv("HOME")
	logDir := filepath.Join(home, ".local", "share", "smoothtile")
	logPath := filepath.Join(logDir, "smoothtile.log")

	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Fatalf("failed to create log directory: %v", err)
	}

	writer, err := rotatelogs.New(
		logPath+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Fatalf("failed to configure log rotation: %v", err)
	}

	log.SetOutput(writer)
}
