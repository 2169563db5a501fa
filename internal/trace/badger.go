package trace

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

var (
	keyHeader = []byte("run/header")
	keySealed = []byte("run/sealed")
	keyLen    = []byte("run/len")
)

const drawPrefix = "draw/"

type badgerHeader struct {
	RunID string `json:"run_id"`
	Vars  []Var  `json:"vars"`
}

// Badger stores one run in a badger key-value directory. Draw keys are the
// big-endian draw index under "draw/", so iteration order is draw order.
type Badger struct {
	db     *badger.DB
	dir    string
	runID  string
	vars   []Var
	n      int
	sealed bool
	closed bool
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger creates or reopens the store in dir. A nil logger silences
// badger's internal logging.
func OpenBadger(dir string, logger *slog.Logger) (*Badger, error) {
	if dir == "" {
		return nil, errors.New("badger trace store needs a directory")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create trace directory %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Badger{db: db, dir: dir}
	if err := s.loadHeader(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Badger) loadHeader() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyHeader)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read run header: %w", err)
		}
		var h badgerHeader
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &h)
		})
		if err != nil {
			return fmt.Errorf("decode run header: %w", err)
		}
		s.runID = h.RunID
		s.vars = h.Vars
		if s.vars == nil {
			s.vars = []Var{}
		}

		if _, err := txn.Get(keySealed); err == nil {
			s.sealed = true
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("read sealed flag: %w", err)
		}

		item, err = txn.Get(keyLen)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read draw count: %w", err)
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("draw count has %d bytes", len(val))
			}
			s.n = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
}

func drawKey(i int) []byte {
	return binary.BigEndian.AppendUint64([]byte(drawPrefix), uint64(i))
}

func countValue(n int) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(n))
}

func (s *Badger) Setup(ctx context.Context, runID string, vars []Var) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed || s.sealed {
		return ErrClosed
	}
	if s.vars != nil {
		return ErrAlreadySetup
	}
	if vars == nil {
		vars = []Var{}
	}
	val, err := json.Marshal(badgerHeader{RunID: runID, Vars: vars})
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyHeader, val); err != nil {
			return err
		}
		return txn.Set(keyLen, countValue(0))
	})
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	s.runID = runID
	s.vars = append([]Var(nil), vars...)
	return nil
}

func (s *Badger) Append(ctx context.Context, d Draw) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed || s.sealed {
		return ErrClosed
	}
	if s.vars == nil {
		return ErrNotSetup
	}
	if err := checkDraw(s.vars, s.n, d); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(drawKey(s.n), encodeDraw(s.vars, d)); err != nil {
			return err
		}
		return txn.Set(keyLen, countValue(s.n+1))
	})
	if err != nil {
		return fmt.Errorf("append draw %d: %w", s.n, err)
	}
	s.n++
	return nil
}

func (s *Badger) Read(ctx context.Context, i int) (Draw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, ErrClosed
	}
	if s.vars == nil {
		return nil, ErrNotSetup
	}
	if i < 0 || i >= s.n {
		return nil, &IndexError{Index: i, Len: s.n}
	}
	var d Draw
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(drawKey(i))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var derr error
			d, derr = decodeDraw(s.vars, val)
			return derr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read draw %d: %w", i, err)
	}
	return d, nil
}

func (s *Badger) Len(ctx context.Context) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.n, nil
}

func (s *Badger) Header(ctx context.Context) (string, []Var, error) {
	if s.closed {
		return "", nil, ErrClosed
	}
	if s.vars == nil {
		return "", nil, ErrNotSetup
	}
	return s.runID, append([]Var(nil), s.vars...), nil
}

// Close seals the run and closes the database. It is safe to call twice.
func (s *Badger) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var sealErr error
	if s.vars != nil && !s.sealed {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(keySealed, []byte{1})
		})
		if err != nil {
			sealErr = fmt.Errorf("seal run: %w", err)
		}
	}
	return errors.Join(sealErr, s.db.Close())
}
