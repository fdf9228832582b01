// Package cli is a line-oriented front end for local and online games.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-client/internal/usecase"
)

var errUsage = errors.New("usage")

const helpText = `local game:
  local [size]      start a local game (3..7)
  play <cell>       mark a cell
  jump <move>       go back to a move; the next play drops later moves
  resign            the side to move gives up
  score             show the local score, "score reset" clears it
online game:
  connect [alias]   register this device
  search [size]     look for an opponent
  cancel            stop searching
  move <cell>       mark a cell in the online match
  surrender         give up the online match
  reset             leave the match and go back to idle
  status            show the online session
  stats             show wins and losses, "stats reset" clears them
  devices           list connected devices
quit`

type onlineSession interface {
	Connect(ctx context.Context, alias string) (string, error)
	Search(size int) error
	CancelSearch()
	MakeMove(ctx context.Context, index int) error
	Surrender(ctx context.Context) error
	Reset(ctx context.Context)
	Snapshot() usecase.Snapshot
	Subscribe() (<-chan usecase.Snapshot, func())
	Stats(ctx context.Context) (*entity.DeviceInfo, error)
	ResetStats(ctx context.Context) (*entity.StatsReset, error)
	ConnectedDevices(ctx context.Context) ([]string, error)
}

// lockedWriter serializes prompt output and asynchronous session updates.
type lockedWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (that *lockedWriter) Write(p []byte) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.out.Write(p)
}

type CLI struct {
	logger  *slog.Logger
	session onlineSession
	local   *tictactoe.LocalGame
	render  *Renderer
	out     io.Writer
	size    int
	alias   string
}

func New(logger *slog.Logger, session onlineSession, out io.Writer, size int, alias string) (*CLI, error) {
	local, err := tictactoe.NewLocalGame(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create local game: %w", err)
	}

	return &CLI{
		logger:  logger.With("component", "cli"),
		session: session,
		local:   local,
		render:  NewRenderer(out),
		out:     &lockedWriter{out: out},
		size:    size,
		alias:   alias,
	}, nil
}

// Run - reads commands until quit, end of input or ctx cancellation.
func (that *CLI) Run(ctx context.Context, in io.Reader) error {
	updates, unsubscribe := that.session.Subscribe()
	defer unsubscribe()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		that.watch(watchCtx, updates)
	}()

	that.println(that.render.Header("tic-tac-toe") + "  type help for commands")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		quit, err := that.Execute(ctx, scanner.Text())
		if err != nil {
			that.println(that.render.Warning(err.Error()))
		}
		if quit {
			break
		}
	}

	stopWatch()
	<-watchDone

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}

	return nil
}

// Execute - runs one command line; quit reports whether the user asked to leave.
func (that *CLI) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help", "?":
		that.println(helpText)
	case "quit", "exit":
		return true, nil

	case "local":
		return false, that.localRestart(args)
	case "play":
		return false, that.localPlay(args)
	case "jump":
		return false, that.localJump(args)
	case "resign":
		that.localResign()
	case "score":
		that.localScore(args)

	case "connect":
		return false, that.connect(ctx, args)
	case "search":
		return false, that.search(args)
	case "cancel":
		that.session.CancelSearch()
	case "move":
		return false, that.move(ctx, args)
	case "surrender":
		return false, that.session.Surrender(ctx)
	case "reset":
		that.session.Reset(ctx)
	case "status":
		that.printSnapshot(that.session.Snapshot())
	case "stats":
		return false, that.stats(ctx, args)
	case "devices":
		return false, that.devices(ctx)
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}

	return false, nil
}

func (that *CLI) localRestart(args []string) error {
	size := that.local.Size()
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: local [size]", errUsage)
		}
		size = parsed
	}

	if err := that.local.Restart(size); err != nil {
		return err
	}
	that.printLocal()

	return nil
}

func (that *CLI) localPlay(args []string) error {
	index, err := intArg(args, "play <cell>")
	if err != nil {
		return err
	}

	if !that.local.Play(index) {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, index)
	}
	that.printLocal()

	return nil
}

func (that *CLI) localJump(args []string) error {
	move, err := intArg(args, "jump <move>")
	if err != nil {
		return err
	}

	if !that.local.JumpTo(move) {
		return fmt.Errorf("no move %d, last is %d", move, that.local.Moves())
	}
	that.printLocal()

	return nil
}

func (that *CLI) localResign() {
	loser := that.local.Next()
	if that.local.Resign() {
		that.println(fmt.Sprintf("%s resigns, %s wins", loser, loser.Opponent()))
	}
	that.printLocal()
}

func (that *CLI) localScore(args []string) {
	if len(args) > 0 && args[0] == "reset" {
		that.local.ResetScore()
	}

	score := that.local.Score()
	that.println(fmt.Sprintf("X %d  O %d  ties %d", score.XWins, score.OWins, score.Ties))
}

func (that *CLI) printLocal() {
	result := that.local.Result()

	that.println(that.render.Board(that.local.Current(), result.Line))

	switch {
	case result.HasWinner():
		that.println(that.render.Header("Winner: ") + that.render.Symbol(result.Winner))
	case that.local.IsTie():
		that.println(that.render.Header("Tie"))
	default:
		that.println(that.render.Footer(fmt.Sprintf("move %d/%d, next: ", that.local.Cursor(), that.local.Moves())) +
			that.render.Symbol(that.local.Next()))
	}
}

func (that *CLI) connect(ctx context.Context, args []string) error {
	alias := that.alias
	if len(args) > 0 {
		alias = strings.Join(args, " ")
	}

	deviceID, err := that.session.Connect(ctx, alias)
	if err != nil {
		return err
	}
	that.println("connected as " + deviceID)

	return nil
}

func (that *CLI) search(args []string) error {
	size := that.size
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: search [size]", errUsage)
		}
		size = parsed
	}

	return that.session.Search(size)
}

func (that *CLI) move(ctx context.Context, args []string) error {
	index, err := intArg(args, "move <cell>")
	if err != nil {
		return err
	}

	err = that.session.MakeMove(ctx, index)
	if apperror.Classify(err) == apperror.FaultLocal {
		// the session already carries the user message
		return nil
	}

	return err
}

func (that *CLI) stats(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "reset" {
		reset, err := that.session.ResetStats(ctx)
		if err != nil {
			return err
		}
		that.println(reset.Message)

		return nil
	}

	info, err := that.session.Stats(ctx)
	if err != nil {
		return err
	}
	that.println(fmt.Sprintf("wins %d  losses %d  ratio %.2f", info.Wins, info.Losses, info.Ratio))

	return nil
}

func (that *CLI) devices(ctx context.Context) error {
	devices, err := that.session.ConnectedDevices(ctx)
	if err != nil {
		return err
	}
	that.println(fmt.Sprintf("%d connected: %s", len(devices), strings.Join(devices, ", ")))

	return nil
}

func (that *CLI) watch(ctx context.Context, updates <-chan usecase.Snapshot) {
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}

			key := snapshotKey(snap)
			if key == last {
				continue
			}
			// the initial idle snapshot is not worth printing
			if last == "" && snap.State == usecase.StateIdle && snap.Message == "" {
				last = key
				continue
			}
			last = key

			that.printSnapshot(snap)
		}
	}
}

func (that *CLI) printSnapshot(snap usecase.Snapshot) {
	var b strings.Builder

	b.WriteString(that.render.Header("online: " + snap.State.String()))
	if snap.MatchID != "" {
		fmt.Fprintf(&b, "  match %s, you are %s", snap.MatchID, that.render.Symbol(snap.Symbol))
	}

	if snap.Board.Size > 0 && snap.State != usecase.StateIdle {
		b.WriteString("\n" + that.render.Board(snap.Board, snap.WinningLine))
	}

	switch {
	case snap.State == usecase.StatePlaying && snap.MyTurn():
		b.WriteString("\n" + that.render.Footer("your turn"))
	case snap.State == usecase.StatePlaying && snap.Turn != "":
		b.WriteString("\n" + that.render.Footer("opponent's turn"))
	}

	if snap.Message != "" {
		b.WriteString("\n" + that.render.Warning(snap.Message))
	}

	that.println(b.String())
}

func (that *CLI) println(text string) {
	if _, err := fmt.Fprintln(that.out, text); err != nil {
		that.logger.Debug("failed to write output", "error", err)
	}
}

func snapshotKey(snap usecase.Snapshot) string {
	cells := make([]string, len(snap.Board.Cells))
	for i, cell := range snap.Board.Cells {
		cells[i] = string(cell)
	}

	return fmt.Sprintf("%s|%s|%s|%s|%s", snap.State, snap.MatchID, snap.Turn, snap.Message, strings.Join(cells, ","))
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}

	return value, nil
}
