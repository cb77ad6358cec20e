package workload

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/vango-dev/reactivecache/internal/errors"
	"github.com/vango-dev/reactivecache/pkg/reactive"
)

// Params sizes a workload.
type Params struct {
	// ChainLength is the number of memos in a chain.
	ChainLength int

	// FanOut is the number of memos and reactions hanging off one cell.
	FanOut int

	// Writes is the number of cell writes performed.
	Writes int
}

// Env is what a workload runs against.
type Env struct {
	Runtime *reactive.Runtime
	Params  Params
	Logger  *slog.Logger
}

// Workload is a named reactive graph exercise.
type Workload struct {
	Name        string
	Description string
	Run         func(env *Env) error
}

// Result is the outcome of one Execute call.
type Result struct {
	Name     string
	Duration time.Duration
	Stats    reactive.Stats
}

var registry = map[string]Workload{}

func register(w Workload) {
	registry[w.Name] = w
}

// Get returns the workload registered under name.
func Get(name string) (Workload, error) {
	w, ok := registry[name]
	if !ok {
		return Workload{}, errors.New("E200").
			WithDetail(fmt.Sprintf("No workload named %q.", name)).
			WithSuggestion("Available workloads: " + fmt.Sprint(Names()))
	}
	return w, nil
}

// Names returns the registered workload names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered workload in name order.
func All() []Workload {
	names := Names()
	out := make([]Workload, len(names))
	for i, name := range names {
		out[i] = registry[name]
	}
	return out
}

// Execute runs w on a new Runtime built from opts.
func Execute(w Workload, p Params, logger *slog.Logger, opts ...reactive.Option) (res Result, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("workload", w.Name)

	rt := reactive.NewRuntime(append([]reactive.Option{reactive.WithLogger(logger)}, opts...)...)
	res.Name = w.Name

	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok || !stderrors.Is(perr, reactive.ErrInvariant) {
				panic(r)
			}
			err = errors.New("E202").Wrap(perr)
		}
		res.Stats = rt.Stats()
	}()

	start := time.Now()
	err = w.Run(&Env{Runtime: rt, Params: p, Logger: logger})
	res.Duration = time.Since(start)
	return res, err
}

// check reports a failed expectation as E203.
func check[T comparable](workload, what string, got, want T) error {
	if got == want {
		return nil
	}
	return errors.New("E203").
		WithDetail(fmt.Sprintf("%s: %s is %v, expected %v.", workload, what, got, want))
}

func firstFailure(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
