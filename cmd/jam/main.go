// Command jam is the jamvcs client: it resolves the server address (from
// workspace.yaml or UDP LAN discovery), verifies its login code, and runs
// a single command string against the command registry's client half.
// Grounded on jam_client.rs's connect/verify/dispatch shape and
// setup.rs's Login subcommand for first-time workspace bootstrap.
package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/rcowham/jamvcs/internal/commands"
	"github.com/rcowham/jamvcs/internal/discovery"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
	"github.com/rcowham/jamvcs/internal/workspace"
)

var (
	root  = kingpin.Flag("root", "Workspace root directory.").Default(".").Short('r').String()
	debug = kingpin.Flag("debug", "Enable debug-level logging and debug result rendering.").Bool()

	loginCmd        = kingpin.Command("login", "Join a workspace with a login code.")
	loginCode       = loginCmd.Arg("code", "Login code given to you by the workspace admin.").Required().String()
	loginTarget     = loginCmd.Flag("target", "Server address host:port.").Short('t').String()
	loginWorkspace  = loginCmd.Flag("workspace", "Workspace name, resolved via LAN discovery.").Short('w').String()
	discoverTimeout = loginCmd.Flag("discover-timeout", "How long to wait for a LAN discovery reply.").Default("2s").Duration()

	runCmd     = kingpin.Command("run", "Run a command against the connected workspace.").Default()
	runCommand = runCmd.Arg("command", "Command to run, e.g. \"add art/level.png\".").Required().Strings()
)

func main() {
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version("jam 0.1.0").Author("jamvcs")
	kingpin.CommandLine.Help = "jam runs commands against a jamvcs workspace.\n"
	kingpin.HelpFlag.Short('h')
	command := kingpin.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	workspaceRoot := store.NewRoot(*root)

	if command == loginCmd.FullCommand() {
		runLogin(workspaceRoot, logger)
		return
	}

	runRun(workspaceRoot, logger)
}

// runLogin establishes this directory as a client workspace, mirroring
// setup_client_workspace: resolve a target address either directly or via
// LAN discovery, then persist workspace.yaml. The member's uuid is filled
// in on first successful connection by runRun, not here.
func runLogin(root store.Root, logger *logrus.Logger) {
	if *loginTarget == "" && *loginWorkspace == "" {
		fmt.Fprintln(os.Stderr, "Err: specify either --target <address> or --workspace <name>")
		os.Exit(1)
	}

	targetAddr := *loginTarget
	workspaceName := *loginWorkspace
	if targetAddr == "" {
		addr, err := discovery.Broadcast(workspaceName, *discoverTimeout)
		if err != nil {
			logger.WithError(err).Fatal("failed to discover workspace on LAN")
		}
		targetAddr = addr
	}

	ws := workspace.NewWorkspace()
	ws.WorkspaceType = workspace.Client
	ws.Client = &workspace.ClientWorkspace{
		WorkspaceName: workspaceName,
		TargetAddr:    targetAddr,
		LoginCode:     strings.TrimSpace(*loginCode),
	}
	if err := store.Save(root, ws); err != nil {
		logger.WithError(err).Fatal("failed to write workspace.yaml")
	}
	fmt.Println("Client workspace has been established")
}

// runRun verifies the login code against the configured server and
// dispatches one command against the local half of the command registry.
func runRun(root store.Root, logger *logrus.Logger) {
	ws := store.Load(root, workspace.NewWorkspace())
	if ws.WorkspaceType == workspace.Unknown {
		logger.Fatal("no client workspace set up here -- run \"jam login <code> --workspace <name>\" first")
	}
	if ws.Client == nil {
		logger.Fatal("workspace.yaml exists but carries no Client section")
	}

	conn, err := net.DialTimeout("tcp", ws.Client.TargetAddr, 5*time.Second)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect")
	}
	defer conn.Close()

	transport.SendMsg(conn, transport.Verify(ws.Client.LoginCode), logger)
	reply := transport.ReadMsg[transport.ServerMessage](conn, logger)
	if reply.Kind != transport.SMUuid {
		fmt.Fprintln(os.Stderr, "Err: verification failed:", reply.Deny)
		os.Exit(1)
	}
	if ws.Client.UUID != reply.Text {
		ws.Client.UUID = reply.Text
		if err := store.Save(root, ws); err != nil {
			logger.WithError(err).Warn("failed to persist assigned uuid")
		}
	}

	argv, err := resolveArgv(*runCommand)
	if err != nil {
		logger.WithError(err).Fatal("failed to parse command")
	}
	if len(argv) == 0 {
		logger.Fatal("empty command")
	}

	registry := commands.NewRegistry(root)
	cmd, ok := registry[argv[0]]
	if !ok {
		fmt.Fprintln(os.Stderr, "Err: unknown command:", argv[0])
		os.Exit(1)
	}

	transport.SendMsg(conn, transport.CommandMsg(argv), logger)

	result := cmd.Local(&commands.LocalContext{
		Conn:       conn,
		Args:       argv,
		MemberUUID: ws.Client.UUID,
		Debug:      *debug || ws.Client.Debug,
		Root:       root,
		Logger:     logger,
	})

	fmt.Print(result.Render())
	os.Exit(result.ExitCode())
}

// resolveArgv tokenizes the command arguments the same way a shell would
// (so quoted search expressions with spaces survive), falling back to the
// already-split kingpin argv if shlex finds nothing to re-split.
func resolveArgv(args []string) ([]string, error) {
	joined := strings.Join(args, " ")
	tokens, err := shlex.Split(joined)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return args, nil
	}
	return tokens, nil
}
