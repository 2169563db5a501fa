package trace

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// Store is a pluggable destination for draws.
//
// A store is owned by one inference run at a time. Setup is called once,
// then Append once per draw; Close seals the store, after which Append
// returns ErrClosed. File-backed stores reopened with Open reproduce the
// written header and draws exactly and stay sealed.
type Store interface {
	// Setup records the run header. It fails on a store that already holds
	// a run.
	Setup(ctx context.Context, runID string, vars []Var) error

	// Append adds the next draw.
	Append(ctx context.Context, d Draw) error

	// Read returns draw i.
	Read(ctx context.Context, i int) (Draw, error)

	// Len returns the number of draws written.
	Len(ctx context.Context) (int, error)

	// Header returns the run ID and variables given to Setup.
	Header(ctx context.Context) (string, []Var, error)

	// Close seals the store and releases its resources.
	Close() error
}

// Kind names a store backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
	KindBadger Kind = "badger"

	// KindFile is an alias for the default file-backed store.
	KindFile Kind = "file"
)

// Kinds lists the backend names accepted by Open.
func Kinds() []Kind {
	return []Kind{KindMemory, KindSQLite, KindFile, KindBadger}
}

// ParseKind resolves a case-insensitive backend name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown trace backend %q (want one of %v)", s, Kinds())
}

// ErrAlreadySetup is returned by Setup on a store that already holds a run.
var ErrAlreadySetup = errors.New("trace store already holds a run")

// ErrNotSetup is returned when a store is used before Setup.
var ErrNotSetup = errors.New("trace store has no run")

// IndexError is returned by Read for an index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("draw index %d out of range [0, %d)", e.Index, e.Len)
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

type openOptions struct {
	logger *slog.Logger
}

// WithLogger routes backend diagnostics to logger.
func WithLogger(logger *slog.Logger) OpenOption {
	return func(o *openOptions) { o.logger = logger }
}

// Open creates or reopens a store of the given kind. path is ignored for
// the memory backend; it is a database file for sqlite and a directory for
// badger.
func Open(kind Kind, path string, opts ...OpenOption) (Store, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindSQLite, KindFile:
		return OpenSQLite(path)
	case KindBadger:
		return OpenBadger(path, o.logger)
	}
	return nil, fmt.Errorf("unknown trace backend %q", kind)
}

// Load reads every draw of s into a sealed Trace.
func Load(ctx context.Context, s Store) (*Trace, error) {
	runID, vars, err := s.Header(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trace: %w", err)
	}
	n, err := s.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trace: %w", err)
	}
	t := New(runID, vars)
	t.Draws = make([]Draw, 0, n)
	for i := 0; i < n; i++ {
		d, err := s.Read(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("load trace: %w", err)
		}
		t.Draws = append(t.Draws, d)
	}
	t.Seal()
	return t, nil
}

// Write copies t into a fresh store.
func Write(ctx context.Context, s Store, t *Trace) error {
	if err := s.Setup(ctx, t.RunID, t.Vars); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	for i, d := range t.Draws {
		if err := s.Append(ctx, d); err != nil {
			return fmt.Errorf("write trace: draw %d: %w", i, err)
		}
	}
	return nil
}

// encodeDraw lays the values of d out in vars order as big-endian IEEE-754
// bits.
func encodeDraw(vars []Var, d Draw) []byte {
	size := 0
	for _, v := range vars {
		size += v.Size()
	}
	buf := make([]byte, 0, 8*size)
	for _, v := range vars {
		for _, x := range d[v.Name] {
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(x))
		}
	}
	return buf
}

func decodeDraw(vars []Var, buf []byte) (Draw, error) {
	d := make(Draw, len(vars))
	off := 0
	for _, v := range vars {
		n := v.Size()
		if len(buf) < off+8*n {
			return nil, fmt.Errorf("decode draw: %d bytes, variable %q needs %d more", len(buf), v.Name, off+8*n-len(buf))
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = math.Float64frombits(binary.BigEndian.Uint64(buf[off:]))
			off += 8
		}
		d[v.Name] = vals
	}
	if off != len(buf) {
		return nil, fmt.Errorf("decode draw: %d trailing bytes", len(buf)-off)
	}
	return d, nil
}
