package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ppiankov/hazardwatch/internal/model"
)

// Manual prompts for every variable and re-prompts until the answer is in
// the domain. Only an empty domain or closed input ends a step with an error.
type Manual struct {
	schema model.Schema
	in     io.Reader
	out    io.Writer

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewManual reads answers from in and writes prompts to out.
func NewManual(schema model.Schema, in io.Reader, out io.Writer) (*Manual, error) {
	if in == nil {
		return nil, fmt.Errorf("source: manual source needs an input stream")
	}
	if out == nil {
		out = io.Discard
	}
	return &Manual{schema: schema, in: in, out: out}, nil
}

// Next asks for each variable in schema order. Cancelling ctx abandons the
// pending prompt; the line being typed is consumed by the next call.
func (m *Manual) Next(ctx context.Context, step int) (model.Evidence, error) {
	values := make(map[model.Variable]model.State, len(m.schema))
	fmt.Fprintf(m.out, "Step %d\n", step+1)

	for _, d := range m.schema {
		if len(d.States) == 0 {
			return model.Evidence{}, &model.DomainError{Variable: d.Variable, Reason: model.ErrEmptyDomain}
		}
		for {
			fmt.Fprintf(m.out, "  %s [%s]: ", d.Variable, joinStates(d.States))
			line, err := m.readLine(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return model.Evidence{}, fmt.Errorf("manual input closed at %s: %w", d.Variable, io.ErrUnexpectedEOF)
				}
				return model.Evidence{}, err
			}
			st, err := m.schema.Normalize(d.Variable, line)
			if err != nil {
				fmt.Fprintf(m.out, "  invalid %s %q, choose one of %s\n",
					d.Variable, strings.TrimSpace(line), joinStates(d.States))
				continue
			}
			values[d.Variable] = st
			break
		}
	}

	return model.NewEvidence(m.schema, values)
}

// readLine waits for the next input line or ctx. The reader goroutine lives
// until input closes since a blocked terminal read cannot be interrupted.
func (m *Manual) readLine(ctx context.Context) (string, error) {
	m.once.Do(func() {
		m.lines = make(chan lineResult)
		go m.pump()
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-m.lines:
		if !ok {
			return "", io.EOF
		}
		return r.text, r.err
	}
}

func (m *Manual) pump() {
	defer close(m.lines)
	sc := bufio.NewScanner(m.in)
	for sc.Scan() {
		m.lines <- lineResult{text: sc.Text()}
	}
	if err := sc.Err(); err != nil {
		m.lines <- lineResult{err: fmt.Errorf("read manual input: %w", err)}
	}
}

func joinStates(states []model.State) string {
	parts := make([]string, len(states))
	for i, st := range states {
		parts[i] = string(st)
	}
	return strings.Join(parts, "/")
}
