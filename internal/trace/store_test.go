package trace

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func storePath(t *testing.T, kind Kind) string {
	t.Helper()
	switch kind {
	case KindBadger:
		return filepath.Join(t.TempDir(), "trace.badger")
	case KindMemory:
		return ""
	}
	return filepath.Join(t.TempDir(), "trace.db")
}

func openTestStore(t *testing.T, kind Kind, path string) Store {
	t.Helper()
	s, err := Open(kind, path)
	require.NoError(t, err, "Open(%s)", kind)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendReadClose(t *testing.T) {
	ctx := context.Background()
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			s := openTestStore(t, kind, storePath(t, kind))

			_, err := s.Read(ctx, 0)
			assert.ErrorIs(t, err, ErrNotSetup)
			assert.ErrorIs(t, s.Append(ctx, testDraw(0)), ErrNotSetup)

			require.NoError(t, s.Setup(ctx, "run-1", testVars))
			assert.ErrorIs(t, s.Setup(ctx, "run-2", testVars), ErrAlreadySetup)

			for i := 0; i < 3; i++ {
				require.NoError(t, s.Append(ctx, testDraw(i)))
			}
			n, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			d, err := s.Read(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, testDraw(2), d)

			_, err = s.Read(ctx, 3)
			var idxErr *IndexError
			assert.True(t, errors.As(err, &idxErr))

			var drawErr *DrawError
			assert.True(t, errors.As(s.Append(ctx, Draw{"switchpoint": {1}}), &drawErr))

			require.NoError(t, s.Close())
			assert.ErrorIs(t, s.Append(ctx, testDraw(3)), ErrClosed)
			assert.NoError(t, s.Close(), "second Close is a no-op")
		})
	}
}

func TestStore_ReopenReproducesDraws(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []Kind{KindSQLite, KindFile, KindBadger} {
		t.Run(string(kind), func(t *testing.T) {
			path := storePath(t, kind)
			want := buildTrace(t, "run-roundtrip", 25)
			// Values that text encodings tend to lose.
			want.Draws[7]["rates"] = []float64{math.Nextafter(1, 2), 1e-310}
			want.Draws[8]["rates"] = []float64{math.NaN(), math.Inf(-1)}

			s, err := Open(kind, path)
			require.NoError(t, err)
			require.NoError(t, Write(ctx, s, want))
			require.NoError(t, s.Close())

			reopened := openTestStore(t, kind, path)
			got, err := Load(ctx, reopened)
			require.NoError(t, err)

			assert.Equal(t, want.RunID, got.RunID)
			assert.Equal(t, want.Vars, got.Vars)
			assert.Equal(t, want.Len(), got.Len())
			assert.Equal(t, want.Digest(), got.Digest())
			assert.True(t, got.Sealed())
			assert.True(t, math.IsNaN(got.Draws[8]["rates"][0]))

			assert.ErrorIs(t, reopened.Append(ctx, testDraw(0)), ErrClosed,
				"sealed store refuses appends after reopen")
			assert.ErrorIs(t, reopened.Setup(ctx, "again", testVars), ErrClosed)
		})
	}
}

func TestStore_ReadAfterCloseNeedsReopen(t *testing.T) {
	ctx := context.Background()
	path := storePath(t, KindSQLite)
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Setup(ctx, "run", testVars))
	require.NoError(t, s.Append(ctx, testDraw(0)))
	require.NoError(t, s.Close())

	_, err = s.Read(ctx, 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemory_ReadableAfterClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, Write(ctx, s, buildTrace(t, "run", 3)))
	require.NoError(t, s.Close())

	got, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len())
}

func TestSQLite_SchemaVersion(t *testing.T) {
	s, err := OpenSQLite(storePath(t, KindSQLite))
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("tape", "")
	assert.Error(t, err)

	k, err := ParseKind(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, KindSQLite, k)
	_, err = ParseKind("tape")
	assert.Error(t, err)
}

func TestDrawCodec_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		vars := []Var{{Name: "a", Shape: []int{}}, {Name: "b", Shape: []int{n}}}
		d := Draw{
			"a": {math.Float64frombits(rapid.Uint64().Draw(rt, "a"))},
			"b": make([]float64, n),
		}
		for i := range d["b"] {
			d["b"][i] = math.Float64frombits(rapid.Uint64().Draw(rt, "b"))
		}

		got, err := decodeDraw(vars, encodeDraw(vars, d))
		if err != nil {
			rt.Fatalf("decode: %v", err)
		}
		for _, v := range vars {
			for i := range d[v.Name] {
				if math.Float64bits(got[v.Name][i]) != math.Float64bits(d[v.Name][i]) {
					rt.Fatalf("%s[%d]: bits differ", v.Name, i)
				}
			}
		}
	})
}

func TestDrawCodec_RejectsTruncated(t *testing.T) {
	buf := encodeDraw(testVars, testDraw(0))
	_, err := decodeDraw(testVars, buf[:len(buf)-3])
	assert.Error(t, err)
	_, err = decodeDraw(testVars, append(buf, 0))
	assert.Error(t, err)
}
