package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"vynel/internal/chat"
	"vynel/internal/manager"
	"vynel/pkg/types"
)

// session is the part of *manager.Manager the REPL drives.
type session interface {
	EnsureReady(ctx context.Context, modelID string, onProgress manager.ProgressFunc) (manager.BackendKind, error)
	Generate(ctx context.Context, turns []manager.Turn, h manager.StreamHandlers) error
	LastStats() (manager.GenerationStats, bool)
	ListModels() []types.Model
	ModelID() string
	Cancel()
	Reset()
}

func newChatCmd(a *app) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat on stdin",
		Long: "Interactive chat. Ctrl-C stops a running reply; at the prompt it exits.\n" +
			"Commands: /reset, /model <id>, /models, /quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cleanup, err := buildManager(a.cfg, a.log)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			r := newREPL(mgr, cmd.InOrStdin(), cmd.OutOrStdout())
			r.model = model

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, os.Interrupt)
			defer signal.Stop(sigc)
			go func() {
				for range sigc {
					if !r.interrupt() {
						cancel()
						return
					}
				}
			}()
			return r.run(ctx)
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model id (defaults to the last selected or configured model)")
	return cmd
}

type repl struct {
	s     session
	in    io.Reader
	out   io.Writer
	outMu sync.Mutex
	conv  *chat.Conversation
	model string

	generating atomic.Bool
	genMu      sync.Mutex
	stopGen    context.CancelFunc
}

func newREPL(s session, in io.Reader, out io.Writer) *repl {
	return &repl{s: s, in: in, out: out, conv: chat.New()}
}

func (r *repl) printf(format string, args ...any) {
	r.outMu.Lock()
	fmt.Fprintf(r.out, format, args...)
	r.outMu.Unlock()
}

// interrupt cancels a running reply. It reports false when nothing was
// running, meaning the interrupt should end the REPL.
func (r *repl) interrupt() bool {
	if !r.generating.Load() {
		return false
	}
	r.genMu.Lock()
	stop := r.stopGen
	r.genMu.Unlock()
	if stop != nil {
		stop()
	}
	r.s.Cancel()
	return true
}

func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.printf("vynel chat. /quit to exit.\n> ")
	for {
		var line string
		select {
		case <-ctx.Done():
			r.printf("\n")
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}
		if strings.TrimSpace(line) == "" {
			r.printf("> ")
			continue
		}
		if name, arg, ok := chat.IsCommand(line); ok {
			if quit := r.command(ctx, name, arg); quit {
				return nil
			}
			r.printf("> ")
			continue
		}
		r.send(ctx, line)
		r.printf("> ")
	}
}

func (r *repl) command(ctx context.Context, name, arg string) (quit bool) {
	switch name {
	case "quit", "exit":
		return true
	case "reset":
		r.s.Reset()
		r.conv.Clear()
		r.printf("session reset\n")
	case "model":
		if arg == "" {
			r.printf("current model: %s\n", r.s.ModelID())
			return false
		}
		r.conv.Clear()
		r.model = arg
		r.ensure(ctx)
	case "models":
		for _, m := range r.s.ListModels() {
			r.printf("  %-40s %s\n", m.ID, m.Name)
		}
	default:
		r.printf("unknown command /%s\n", name)
	}
	return false
}

func (r *repl) ensure(ctx context.Context) (time.Duration, bool) {
	start := time.Now()
	kind, err := r.s.EnsureReady(ctx, r.model, func(ev manager.ProgressEvent) {
		if ev.Err != "" {
			return
		}
		r.printf("\rLoading model… %3d%%", int(ev.Progress*100+0.5))
	})
	if err != nil {
		r.printf("\rFailed to load model: %v\n", err)
		return 0, false
	}
	load := time.Since(start)
	if load > 50*time.Millisecond {
		r.printf("\rModel ready on %s (%dms)\n", kind, load.Milliseconds())
	}
	return load, true
}

func (r *repl) send(ctx context.Context, text string) {
	turns := r.conv.Begin(text)
	if _, ok := r.ensure(ctx); !ok {
		r.conv.Abort()
		return
	}
	// the reply's own context covers a Ctrl-C that lands before the
	// session has admitted the generation
	gctx, stop := context.WithCancel(ctx)
	r.genMu.Lock()
	r.stopGen = stop
	r.genMu.Unlock()
	r.generating.Store(true)
	defer func() {
		r.generating.Store(false)
		r.genMu.Lock()
		r.stopGen = nil
		r.genMu.Unlock()
		stop()
	}()

	var (
		failed error
		done   bool
	)
	err := r.s.Generate(gctx, turns, manager.StreamHandlers{
		OnToken: func(s string) {
			r.conv.Append(s)
			r.printf("%s", s)
		},
		OnDone: func(res manager.FinalResult) {
			done = true
			r.conv.Finish(res.Content)
		},
		OnError: func(err error) { failed = err },
	})
	switch {
	case err != nil:
		r.conv.Abort()
		r.printf("error: %v\n", err)
		return
	case failed != nil:
		r.conv.Abort()
		r.printf("\nerror: %v\n", failed)
		return
	}
	r.printf("\n")
	if !done {
		r.conv.Abort()
		r.printf("[stopped]\n")
		return
	}
	if st, ok := r.s.LastStats(); ok {
		r.printf("[ttft %dms · %d tokens · %dms · %.1f tok/s]\n",
			st.TTFT.Milliseconds(), st.Tokens, st.Total.Milliseconds(), st.TokensPerSecond())
	}
}
