package syntax

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	parserbackend "github.com/kpumuk/metacheck/internal/syntax/backend"
	"github.com/kpumuk/metacheck/internal/syntax/backend/native"
	"github.com/kpumuk/metacheck/internal/syntax/backend/treesitter"
)

// DefaultBackend names the parser backend used when ParseOptions.Backend is empty.
const DefaultBackend = "native"

// ErrUnknownBackend is returned when ParseOptions.Backend names no registered backend.
var ErrUnknownBackend = errors.New("unknown parser backend")

var (
	parserFactoryMu sync.RWMutex
	parserFactory   parserbackend.Factory = native.NewFactory()

	registeredFactories = map[string]parserbackend.Factory{
		"native":     native.NewFactory(),
		"treesitter": treesitter.NewFactory(),
	}
)

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(registeredFactories))
	for name := range registeredFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BackendAvailable reports whether name is registered and can create parsers
// in this build.
func BackendAvailable(name string) bool {
	switch name {
	case "":
		return true
	case "treesitter":
		return treesitter.Available()
	default:
		_, ok := registeredFactories[name]
		return ok
	}
}

func parserFactoryFor(name string) (parserbackend.Factory, error) {
	if name == "" {
		return currentParserFactory(), nil
	}
	factory, ok := registeredFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownBackend, name, Backends())
	}
	return factory, nil
}

func currentParserFactory() parserbackend.Factory {
	parserFactoryMu.RLock()
	factory := parserFactory
	parserFactoryMu.RUnlock()
	return factory
}

func setParserFactoryForTesting(factory parserbackend.Factory) func() {
	parserFactoryMu.Lock()
	prev := parserFactory
	parserFactory = factory
	parserFactoryMu.Unlock()

	return func() {
		parserFactoryMu.Lock()
		parserFactory = prev
		parserFactoryMu.Unlock()
	}
}
