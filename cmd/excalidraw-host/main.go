package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-excalidraw"
	"github.com/goliatone/go-excalidraw/commands"
	"github.com/goliatone/go-excalidraw/internal/bridge/wsbridge"
)

func main() {
	var (
		addr        = flag.String("addr", "127.0.0.1:8787", "Listen address")
		notesDir    = flag.String("notes", ".", "Directory holding markdown notes")
		editorDir   = flag.String("editor-dir", "", "Local Excalidraw build served under /assets/local-excalidraw")
		stagingDir  = flag.String("staging-dir", "", "Scratch directory for attachment writes (defaults to the system temp dir)")
		storage     = flag.String("storage", "memory", "Attachment store: memory, bun or joplin")
		driver      = flag.String("driver", "sqlite3", "SQL driver for the bun store: sqlite3 or postgres")
		dsn         = flag.String("dsn", "", "DSN for the bun store")
		joplinURL   = flag.String("joplin-url", "http://127.0.0.1:41184", "Joplin Data API base URL")
		joplinToken = flag.String("joplin-token", os.Getenv("JOPLIN_TOKEN"), "Joplin Data API token")
		logProvider = flag.String("log-provider", "console", "Logger provider: console or gologger")
		logLevel    = flag.String("log-level", "info", "Minimum log level")
		noMigration = flag.Bool("no-migration", false, "Disable v1 to v2 conversion")
		noFallback  = flag.Bool("no-registry-fallback", false, "Disable the process-wide registry fallback")
		retries     = flag.Int("retries", 1, "Dispatcher retries for conversions")
		send        = flag.String("send", "", "Send one bridge message to a running host and print the reply")
		remote      = flag.String("remote", "ws://127.0.0.1:8787/bridge", "Bridge websocket URL used with -send")
	)
	flag.Parse()

	if *send != "" {
		if err := sendMessage(*remote, *send); err != nil {
			log.Fatalf("send: %v", err)
		}
		return
	}

	cfg := excalidraw.DefaultConfig()
	cfg.HTTP.Addr = *addr
	cfg.HTTP.NotebookDir = *notesDir
	cfg.Editor.Dir = *editorDir
	if strings.TrimSpace(*stagingDir) != "" {
		cfg.Staging.Dir = *stagingDir
	}
	cfg.Storage.Provider = *storage
	cfg.Storage.Driver = *driver
	cfg.Storage.DSN = *dsn
	cfg.Joplin.BaseURL = *joplinURL
	cfg.Joplin.Token = *joplinToken
	cfg.Features.Logger = true
	cfg.Logging.Provider = *logProvider
	cfg.Logging.Level = *logLevel
	cfg.Features.Migration = !*noMigration
	cfg.Bridge.RegistryFallback = !*noFallback
	cfg.Commands.MaxRetries = *retries

	module, err := excalidraw.New(cfg)
	if err != nil {
		log.Fatalf("bootstrap module: %v", err)
	}
	defer module.Close()

	registration, err := commands.RegisterContainerCommands(module.Container(), commands.RegistrationOptions{
		Dispatcher: commands.NewDispatcher(cfg.Commands.MaxRetries),
	})
	if err != nil {
		log.Fatalf("register commands: %v", err)
	}
	defer registration.Unsubscribe()
	commands.RouteBridgeConversions(module.Container())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := module.Watch(ctx); err != nil {
		log.Fatalf("watch attachments: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           module.Handler(excalidraw.WithDiagramInserter(commands.DispatchInsert)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Printf("serving notes from %s on http://%s", cfg.HTTP.NotebookDir, cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}

// sendMessage acts as a remote view: it dials the host bridge, sends message on
// the default channel and prints the reply, or "null" when there is none.
func sendMessage(url, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := wsbridge.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Send(ctx, excalidraw.DefaultConfig().Bridge.ChannelID, message)
	if err != nil {
		return err
	}
	if reply == "" {
		reply = "null"
	}
	fmt.Println(reply)
	return nil
}
