package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// fakeSession returns canned outputs and records calls.
type fakeSession struct {
	mu     sync.Mutex
	run    func(*preprocess.Tensor) (RawOutput, error)
	calls  int
	closed int
}

func (s *fakeSession) Run(input *preprocess.Tensor) (RawOutput, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.run == nil {
		return NewRawOutput(), nil
	}
	return s.run(input)
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeRuntime opens fakeSessions and can refuse specific delegates.
type fakeRuntime struct {
	session   *fakeSession
	refuse    map[providers.ProviderBackend]bool
	openErr   error
	openCalls []SessionOptions
}

func (r *fakeRuntime) Type() EngineType { return EngineTFLite }

func (r *fakeRuntime) Open(opts SessionOptions) (Session, error) {
	r.openCalls = append(r.openCalls, opts)
	if r.openErr != nil {
		return nil, r.openErr
	}
	if r.refuse[opts.Delegate.Backend] {
		return nil, fmt.Errorf("%w: %s", providers.ErrUnavailable, opts.Delegate.Backend)
	}
	return r.session, nil
}

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detect.tflite")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestEngine(t *testing.T, rt *fakeRuntime, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{ModelPath: writeModel(t, "model")}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewEngine(cfg, rt, nil)
}

func TestInferBeforeInitialize(t *testing.T) {
	engine := newTestEngine(t, &fakeRuntime{session: &fakeSession{}})

	_, err := engine.Infer(context.Background(), preprocess.NewTensor())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeIsIdempotent(t *testing.T) {
	rt := &fakeRuntime{session: &fakeSession{}}
	engine := newTestEngine(t, rt)

	require.NoError(t, engine.Initialize())
	require.NoError(t, engine.Initialize())

	assert.Len(t, rt.openCalls, 1)
	assert.Equal(t, DefaultThreads, rt.openCalls[0].Threads)
	assert.NotNil(t, engine.Vocabulary())
	assert.True(t, engine.Stats().Initialized)
}

func TestInitializeMissingModel(t *testing.T) {
	engine := NewEngine(Config{ModelPath: "/nonexistent/detect.tflite"}, &fakeRuntime{}, nil)

	err := engine.Initialize()
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, engine.Stats().Initialized)

	_, err = engine.Infer(context.Background(), preprocess.NewTensor())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeEmptyModel(t *testing.T) {
	engine := NewEngine(Config{ModelPath: writeModel(t, "")}, &fakeRuntime{}, nil)

	var initErr *InitializationError
	assert.ErrorAs(t, engine.Initialize(), &initErr)
}

func TestInitializeShortVocabulary(t *testing.T) {
	labels := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(labels, []byte("person\ncar\n"), 0o600))

	engine := newTestEngine(t, &fakeRuntime{session: &fakeSession{}}, func(c *Config) {
		c.LabelsPath = labels
	})

	var initErr *InitializationError
	assert.ErrorAs(t, engine.Initialize(), &initErr)
}

func TestInitializeRuntimeFailure(t *testing.T) {
	corrupt := errors.New("flatbuffer verification failed")
	engine := newTestEngine(t, &fakeRuntime{openErr: corrupt})

	err := engine.Initialize()
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, corrupt)
}

func TestDelegateFallback(t *testing.T) {
	rt := &fakeRuntime{
		session: &fakeSession{},
		refuse:  map[providers.ProviderBackend]bool{providers.XNNPACKProviderBackend: true},
	}
	engine := newTestEngine(t, rt, func(c *Config) {
		c.Delegate.Backend = providers.XNNPACKProviderBackend
	})

	require.NoError(t, engine.Initialize())

	require.Len(t, rt.openCalls, 2)
	assert.Equal(t, providers.XNNPACKProviderBackend, rt.openCalls[0].Delegate.Backend)
	assert.Equal(t, providers.CPUProviderBackend, rt.openCalls[1].Delegate.Backend)

	stats := engine.Stats()
	assert.True(t, stats.DelegateFallback)
	assert.Equal(t, providers.CPUProviderBackend, stats.Delegate)

	// The delegate is retried after a close/initialize cycle.
	require.NoError(t, engine.Close())
	delete(rt.refuse, providers.XNNPACKProviderBackend)
	require.NoError(t, engine.Initialize())
	assert.Equal(t, providers.XNNPACKProviderBackend, engine.Stats().Delegate)
	assert.False(t, engine.Stats().DelegateFallback)
}

func TestInferReturnsOutputs(t *testing.T) {
	want := NewRawOutput()
	want.Count = 1
	want.Scores[0] = 0.9
	session := &fakeSession{run: func(*preprocess.Tensor) (RawOutput, error) { return want, nil }}
	engine := newTestEngine(t, &fakeRuntime{session: session})
	require.NoError(t, engine.Initialize())

	got, err := engine.Infer(context.Background(), preprocess.NewTensor())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(1), engine.Stats().Passes)
}

func TestInferFailureDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		run  func(*preprocess.Tensor) (RawOutput, error)
	}{
		{"error", func(*preprocess.Tensor) (RawOutput, error) {
			return RawOutput{}, errors.New("invoke failed")
		}},
		{"panic", func(*preprocess.Tensor) (RawOutput, error) {
			panic("native crash")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, &fakeRuntime{session: &fakeSession{run: tt.run}})
			require.NoError(t, engine.Initialize())

			out, err := engine.Infer(context.Background(), preprocess.NewTensor())
			require.NoError(t, err)
			assert.Equal(t, float32(0), out.Count)
			assert.Equal(t, uint64(1), engine.Stats().FailedPasses)
		})
	}
}

func TestInferRejectsBadInput(t *testing.T) {
	engine := newTestEngine(t, &fakeRuntime{session: &fakeSession{}})
	require.NoError(t, engine.Initialize())

	released := preprocess.NewTensor()
	released.Release()

	_, err := engine.Infer(context.Background(), released)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = engine.Infer(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInferHonoursCancelledContext(t *testing.T) {
	session := &fakeSession{}
	engine := newTestEngine(t, &fakeRuntime{session: session})
	require.NoError(t, engine.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Infer(ctx, preprocess.NewTensor())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, session.calls)
}

func TestCloseReleasesSession(t *testing.T) {
	session := &fakeSession{}
	engine := newTestEngine(t, &fakeRuntime{session: session})
	require.NoError(t, engine.Initialize())

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())
	assert.Equal(t, 1, session.closed)
	assert.Nil(t, engine.Vocabulary())

	_, err := engine.Infer(context.Background(), preprocess.NewTensor())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInferIsSerialized(t *testing.T) {
	var inFlight, maxInFlight int
	var mu sync.Mutex
	session := &fakeSession{run: func(*preprocess.Tensor) (RawOutput, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		mu.Lock()
		inFlight--
		mu.Unlock()
		return NewRawOutput(), nil
	}}
	engine := newTestEngine(t, &fakeRuntime{session: session})
	require.NoError(t, engine.Initialize())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.Infer(context.Background(), preprocess.NewTensor())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
	assert.Equal(t, uint64(8), engine.Stats().Passes)
}

type quantizedSession struct{ fakeSession }

func (*quantizedSession) InputPrecision() Precision { return PrecisionUINT8 }

func TestStatsReportInputPrecision(t *testing.T) {
	engine := newTestEngine(t, &fakeRuntime{session: &fakeSession{}})
	require.NoError(t, engine.Initialize())
	assert.Equal(t, PrecisionFP32, engine.Stats().InputPrecision)

	assert.Equal(t, PrecisionUINT8, sessionPrecision(&quantizedSession{}))
}
