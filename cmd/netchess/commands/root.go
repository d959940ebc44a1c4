package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aleklund/netchess/internal/config"
	"github.com/aleklund/netchess/internal/rules/chessengine"
	"github.com/aleklund/netchess/internal/session"
	"github.com/aleklund/netchess/internal/tui"
)

var (
	serverAddr string
	roomName   string
)

func Execute() error {
	root := &cobra.Command{
		Use:           "netchess",
		Short:         "Play chess against a friend through a relay server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          run,
	}

	root.Flags().StringVar(&serverAddr, "server", "", "relay address (host:port), prompts when omitted")
	root.Flags().StringVar(&roomName, "room", "", "room name to rendezvous under, prompts when omitted")

	return root.Execute()
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	stdin := bufio.NewReader(os.Stdin)

	if serverAddr == "" {
		serverAddr = promptServer(stdin, cfg.ServerAddr)
	}

	if roomName != "" {
		// Non-interactive rooms fail hard instead of reprompting.
		if err := session.ValidateRoom(roomName); err != nil {
			return err
		}
	} else {
		var err error
		roomName, err = promptRoom(stdin)
		if err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	events := make(chan session.Event, 8)
	program := tea.NewProgram(tui.New(events), tea.WithAltScreen())

	lc, err := session.New(session.Config{
		ServerAddr:  serverAddr,
		Room:        roomName,
		DialTimeout: cfg.DialTimeout,
		Tick:        cfg.Tick,
	}, chessengine.New(), tui.NewRenderer(program), events, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := lc.Run(ctx)
		done <- err
		program.Send(tui.DoneMsg{Err: err})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return err
	}
	cancel()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		// Unrecoverable connection failure during setup: non-zero exit.
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func promptServer(stdin *bufio.Reader, def string) string {
	fmt.Printf("Server address (enter for %s): ", def)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// promptRoom keeps asking until the name passes validation; nothing is
// dialed before that.
func promptRoom(stdin *bufio.Reader) (string, error) {
	for {
		fmt.Print("Room name: ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read room name: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if err := session.ValidateRoom(line); err != nil {
			fmt.Println(err)
			continue
		}
		return line, nil
	}
}

// newLogger writes JSON logs to a file; the terminal belongs to the TUI.
func newLogger(path string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{path}
	zcfg.ErrorOutputPaths = []string{path}
	return zcfg.Build()
}
