// Command jamd is the jamvcs server: it accepts TCP connections from
// jam clients, verifies their identity against the workspace's member
// table, and dispatches each command they send against the shared
// catalog. Grounded on jam_server.rs's connection-accept loop.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/blobstore"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/commands"
	"github.com/rcowham/jamvcs/internal/config"
	"github.com/rcowham/jamvcs/internal/discovery"
	"github.com/rcowham/jamvcs/internal/identity"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
	"github.com/rcowham/jamvcs/internal/workspace"
)

var (
	configFile = kingpin.Flag("config", "Config file for jamd.").Default("jamd.yaml").Short('c').String()
	root       = kingpin.Flag("root", "Workspace root directory.").Default(".").Short('r').String()
	bindAddr   = kingpin.Flag("bind", "Address to listen on (overrides config).").String()
	debug      = kingpin.Flag("debug", "Enable debug-level logging.").Bool()

	serveCmd = kingpin.Command("serve", "Start the server and listen for client connections.").Default()

	memberCmd      = kingpin.Command("member", "Manage workspace members.")
	memberAddCmd   = memberCmd.Command("add", "Add a member and print its login code.")
	memberAddName  = memberAddCmd.Arg("name", "Member name.").Required().String()
	memberListCmd  = memberCmd.Command("list", "List workspace members.")
)

func main() {
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version("jamd 0.1.0").Author("jamvcs")
	kingpin.CommandLine.Help = "jamd serves a jamvcs catalog to jam clients over TCP.\n"
	kingpin.HelpFlag.Short('h')
	command := kingpin.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.LoadConfigFile(*configFile)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	if *bindAddr != "" {
		cfg.BindAddr = *bindAddr
	}

	workspaceRoot := store.NewRoot(*root)
	ws := store.Load(workspaceRoot, workspace.NewWorkspace())
	if ws.WorkspaceType == workspace.Unknown {
		ws.WorkspaceType = workspace.Server
		ws.Server = workspace.NewServerWorkspace(cfg.WorkspaceName)
		if err := store.Save(workspaceRoot, ws); err != nil {
			logger.WithError(err).Fatal("failed to write workspace.yaml")
		}
	}
	if ws.Server == nil {
		logger.Fatal("workspace.yaml exists but carries no Server section")
	}

	switch command {
	case memberAddCmd.FullCommand():
		runMemberAdd(workspaceRoot, ws, *memberAddName, logger)
		return
	case memberListCmd.FullCommand():
		runMemberList(ws)
		return
	}
	_ = serveCmd

	db := store.Load(workspaceRoot, catalog.NewDatabase())
	db.Rebuild()

	blobs := blobstore.New(workspaceRoot.Path(cfg.BlobDir), logger)
	defer blobs.Close()

	trail, err := audit.Open(workspaceRoot.Path("audit.log"))
	if err != nil {
		logger.WithError(err).Fatal("failed to open audit trail")
	}
	defer trail.Close()

	registry := commands.NewRegistry(workspaceRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnableDiscovery {
		go func() {
			if err := discovery.Respond(ctx, ws.Server.WorkspaceName, cfg.BindAddr, logger); err != nil {
				logger.WithError(err).Warn("discovery responder stopped")
			}
		}()
	}

	dirty := make(chan struct{}, 1)

	persistCtx, stopPersister := context.WithCancel(context.Background())
	defer stopPersister()
	persisterDone := make(chan struct{})
	go runPersister(persistCtx, workspaceRoot, db, dirty, persisterDone)

	listener, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		logger.WithError(err).Fatal("failed to bind listener")
	}
	logger.Infof("jamd listening on %s (workspace %q)", cfg.BindAddr, ws.Server.WorkspaceName)

	connDone := make(chan struct{})
	go acceptLoop(ctx, listener, ws.Server, db, blobs, trail, registry, dirty, logger, connDone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down: draining accept loop")
	cancel()
	_ = listener.Close()
	<-connDone
	stopPersister()
	<-persisterDone

	if err := store.Save(workspaceRoot, db); err != nil {
		logger.WithError(err).Error("failed to write final catalog snapshot")
	}
	logger.Info("jamd stopped")
}

// runMemberAdd registers a new member with a fresh uuid and login code,
// grounded on server.rs's server_add_member. The login code is printed
// once for the admin to relay to the member out of band; it is never
// recoverable from workspace.yaml afterward.
func runMemberAdd(root store.Root, ws *workspace.Workspace, name string, logger *logrus.Logger) {
	for _, m := range ws.Server.Members {
		if m.MemberName == name {
			fmt.Fprintln(os.Stderr, "Failed: a member named", name, "already exists")
			os.Exit(1)
		}
	}

	loginCode, err := workspace.GenerateLoginCode()
	if err != nil {
		logger.WithError(err).Fatal("failed to generate login code")
	}
	memberUUID := uuid.New().String()
	ws.Server.AddMember(memberUUID, loginCode, workspace.NewMember(name))

	if err := store.Save(root, ws); err != nil {
		logger.WithError(err).Fatal("failed to write workspace.yaml")
	}
	fmt.Printf("Member %q added, login code: %s\n", name, loginCode)
}

// runMemberList prints every member's name and duties.
func runMemberList(ws *workspace.Workspace) {
	for _, m := range ws.Server.Members {
		fmt.Printf("%s\t%v\n", m.MemberName, m.MemberDuties)
	}
}

// acceptLoop runs until ctx is cancelled, spawning one goroutine per
// accepted connection; once cancelled it waits for those goroutines to
// finish before closing done.
func acceptLoop(
	ctx context.Context,
	listener net.Listener,
	server *workspace.ServerWorkspace,
	db *catalog.Database,
	blobs *blobstore.Store,
	trail *audit.Trail,
	registry commands.Registry,
	dirty chan<- struct{},
	logger *logrus.Logger,
	done chan struct{},
) {
	defer close(done)
	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return
			}
			logger.WithError(err).Warn("accept failed")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConn(conn, server, db, blobs, trail, registry, dirty, logger)
		}()
	}
}

func handleConn(
	conn net.Conn,
	server *workspace.ServerWorkspace,
	db *catalog.Database,
	blobs *blobstore.Store,
	trail *audit.Trail,
	registry commands.Registry,
	dirty chan<- struct{},
	logger *logrus.Logger,
) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("connection handler panicked")
		}
	}()

	memberUUID, member, ok := identity.VerifyServer(conn, server, logger)
	if !ok {
		return
	}
	logger.WithField("member", member.MemberName).Info("member connected")

	msg := transport.ReadMsg[transport.ClientMessage](conn, logger)
	if msg.Kind != transport.CMCommand {
		return
	}
	registry.Dispatch(&commands.RemoteContext{
		Conn:       conn,
		Args:       msg.Command,
		MemberUUID: memberUUID,
		Member:     member,
		DB:         db,
		Blobs:      blobs,
		Trail:      trail,
		Logger:     logger,
		Dirty:      dirty,
	})
}

// runPersister flushes the catalog to disk whenever a command signals the
// catalog is dirty, so a mutation is durable by the time the command that
// made it has returned, plus a 30-second ticker as a backstop for any
// signal that was coalesced away while a save was already in flight. The
// final save on shutdown happens after this loop has exited, per the
// cancellation design note.
func runPersister(ctx context.Context, root store.Root, db *catalog.Database, dirty <-chan struct{}, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = store.Save(root, db.Snapshot())
		case <-dirty:
			_ = store.Save(root, db.Snapshot())
		}
	}
}
