package trace

import "context"

// Memory is a slice-backed store. Draws stay readable after Close.
type Memory struct {
	t      *Trace
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Setup(ctx context.Context, runID string, vars []Var) error {
	if m.closed {
		return ErrClosed
	}
	if m.t != nil {
		return ErrAlreadySetup
	}
	m.t = New(runID, vars)
	return nil
}

func (m *Memory) Append(ctx context.Context, d Draw) error {
	if m.closed {
		return ErrClosed
	}
	if m.t == nil {
		return ErrNotSetup
	}
	return m.t.Append(d)
}

func (m *Memory) Read(ctx context.Context, i int) (Draw, error) {
	if m.t == nil {
		return nil, ErrNotSetup
	}
	if i < 0 || i >= m.t.Len() {
		return nil, &IndexError{Index: i, Len: m.t.Len()}
	}
	return m.t.Draws[i].Clone(), nil
}

func (m *Memory) Len(ctx context.Context) (int, error) {
	if m.t == nil {
		return 0, nil
	}
	return m.t.Len(), nil
}

func (m *Memory) Header(ctx context.Context) (string, []Var, error) {
	if m.t == nil {
		return "", nil, ErrNotSetup
	}
	return m.t.RunID, append([]Var(nil), m.t.Vars...), nil
}

func (m *Memory) Close() error {
	m.closed = true
	if m.t != nil {
		m.t.Seal()
	}
	return nil
}
