package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/phrazzld/querykit/internal/platform/sqlexec"
	"github.com/phrazzld/querykit/internal/schema"
	"github.com/phrazzld/querykit/internal/store"
)

// Store is what a session drives: a store.Store that can also open
// session-scoped transactions.
type Store interface {
	store.Store
	Begin(ctx context.Context) (*sqlexec.Tx, error)
}

// ErrTransactionOpen is returned by begin while a transaction is open.
var ErrTransactionOpen = fmt.Errorf("%w: a transaction is already open", schema.ErrConfiguration)

// ErrNoTransaction is returned by commit and rollback without a transaction.
var ErrNoTransaction = fmt.Errorf("%w: no open transaction", schema.ErrConfiguration)

// Session holds the state of one console: the store, the output and an
// optional open transaction.
type Session struct {
	store    Store
	registry *schema.Registry
	render   *Renderer
	out      io.Writer
	prompt   string
	logger   *slog.Logger

	tx   *sqlexec.Tx
	done bool
}

// Option configures a Session.
type Option func(*Session)

// WithRegistry replaces schema.Default().
func WithRegistry(r *schema.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithFormat sets the initial output format.
func WithFormat(f Format) Option {
	return func(s *Session) { s.render.SetFormat(f) }
}

// WithPrompt prints prompt before reading each line.
func WithPrompt(prompt string) Option {
	return func(s *Session) { s.prompt = prompt }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a session writing to out.
func NewSession(st Store, out io.Writer, opts ...Option) *Session {
	s := &Session{
		store:    st,
		registry: schema.Default(),
		render:   NewRenderer(out, FormatTable),
		out:      out,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "console"))
	return s
}

// Renderer returns the session's renderer.
func (s *Session) Renderer() *Renderer { return s.render }

// InTransaction reports whether later intents run inside a transaction.
func (s *Session) InTransaction() bool { return s.tx != nil }

// Run reads intents from in until exit or end of input. Failed intents are
// rendered and the loop continues. An open transaction is rolled back before
// Run returns.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for !s.done {
		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			s.Close(context.WithoutCancel(ctx))
			return err
		}
		if err := s.ExecLine(ctx, scanner.Text()); err != nil {
			_ = s.render.Error(err)
		}
	}
	s.Close(ctx)
	return scanner.Err()
}

// ExecLine tokenizes one line with shell quoting rules and executes it.
// Blank lines and lines starting with # are ignored.
func (s *Session) ExecLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	args, err := shellquote.Split(line)
	if err != nil {
		return fmt.Errorf("%w: %v", schema.ErrConfiguration, err)
	}
	return s.Exec(ctx, args)
}

// Exec executes one intent given as arguments, e.g. from the command line.
func (s *Session) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	s.logger.Debug("executing intent", slog.String("intent", args[0]))
	return dispatch(ctx, s, args)
}

// Close rolls back an open transaction.
func (s *Session) Close(ctx context.Context) {
	if s.tx == nil {
		return
	}
	if s.tx.State() == store.TxStarted {
		if err := s.tx.Rollback(ctx); err != nil {
			s.logger.Error("failed to roll back open transaction",
				slog.String("tx_id", s.tx.ID()),
				slog.String("error", err.Error()))
		} else {
			s.render.Note("rolled back open transaction %s", s.tx.ID())
		}
	}
	s.tx = nil
}

// executor returns the open transaction or the store itself.
func (s *Session) executor() store.Executor {
	if s.tx != nil {
		return s.tx
	}
	return s.store
}

func (s *Session) entity(name string) (*schema.Entity, error) {
	return s.registry.Entity(name)
}

func (s *Session) begin(ctx context.Context) error {
	if s.tx != nil {
		return ErrTransactionOpen
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	s.tx = tx
	return s.render.Message("transaction", "started "+tx.ID())
}

func (s *Session) commit(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return s.render.Message("transaction", "committed "+tx.ID())
}

func (s *Session) rollback(ctx context.Context) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	// A failed statement already aborted it; discarding is all that is left.
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, store.ErrTransactionClosed) {
		return err
	}
	return s.render.Message("transaction", "rolled back "+tx.ID())
}
