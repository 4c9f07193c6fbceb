package runtime

import (
	"bytes"
	"context"
	"log/slog"
)

// Enumerator lists container names. Runtime failures are logged and
// reported as an empty list.
type Enumerator struct {
	rt  Runtime
	log *slog.Logger
}

func NewEnumerator(rt Runtime, log *slog.Logger) *Enumerator {
	return &Enumerator{rt: rt, log: log}
}

// Running returns the names of running containers
func (e *Enumerator) Running(ctx context.Context) []string {
	return e.list(ctx, FilterRunning)
}

// All returns the names of every container
func (e *Enumerator) All(ctx context.Context) []string {
	return e.list(ctx, FilterAll)
}

// NonRunning returns All minus Running, in the order of All
func (e *Enumerator) NonRunning(ctx context.Context) []string {
	all := e.All(ctx)
	if len(all) == 0 {
		return nil
	}

	running := make(map[string]struct{})
	for _, name := range e.Running(ctx) {
		running[name] = struct{}{}
	}

	var out []string
	for _, name := range all {
		if _, ok := running[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

func (e *Enumerator) list(ctx context.Context, filter Filter) []string {
	names, err := e.rt.ListContainers(ctx, filter)
	if err != nil {
		e.log.Error("Error fetching containers", "filter", filter.String(), "err", err)
		return nil
	}
	return names
}

// Inspector fetches one inspection record at a time
type Inspector struct {
	rt  Runtime
	log *slog.Logger
}

func NewInspector(rt Runtime, log *slog.Logger) *Inspector {
	return &Inspector{rt: rt, log: log}
}

// Inspect returns the record for name, or false if the runtime failed or
// printed nothing. Nothing should be persisted for a false result.
func (i *Inspector) Inspect(ctx context.Context, name string) ([]byte, bool) {
	out, err := i.rt.Inspect(ctx, name)
	if err != nil {
		i.log.Error("Error inspecting container", "container", name, "err", err)
		return nil, false
	}
	if len(bytes.TrimSpace(out)) == 0 {
		i.log.Error("Empty inspection output", "container", name)
		return nil, false
	}
	return out, true
}
