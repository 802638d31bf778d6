package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompt asks for the benchmark and client settings on w and reads the
// answers from r, one per line. An empty line, or the end of input, keeps
// the value shown in parentheses. The batching questions are skipped when
// batching is turned off.
func Prompt(r io.Reader, w io.Writer, cfg *Config) error {
	p := &prompter{in: bufio.NewScanner(r), out: w}

	p.int("data_size", &cfg.Benchmark.DataSize)
	p.int("threads", &cfg.Benchmark.Threads)
	p.int("max_sessions", &cfg.Client.MaxSessions)
	p.bool("enable_batching", &cfg.Batch.Enabled)
	if p.err == nil && cfg.Batch.Enabled {
		p.bool("thread_isolated", &cfg.Batch.ThreadIsolated)
		p.int("batch_size", &cfg.Batch.BatchSize)
		p.int("timeout_ms", &cfg.Batch.TimeoutMs)
	}
	return p.err
}

// prompter keeps the first error and turns later questions into no-ops
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
	err error
}

// ask prints the question and returns the trimmed answer, "" for the default
func (p *prompter) ask(name string, def string) string {
	if p.err != nil {
		return ""
	}
	fmt.Fprintf(p.out, "%s (%s): ", name, def)
	if !p.in.Scan() {
		p.err = p.in.Err()
		return ""
	}
	return strings.TrimSpace(p.in.Text())
}

func (p *prompter) int(name string, v *int) {
	answer := p.ask(name, strconv.Itoa(*v))
	if answer == "" {
		return
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		p.err = fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, answer)
		return
	}
	*v = n
}

func (p *prompter) bool(name string, v *bool) {
	def := "0"
	if *v {
		def = "1"
	}
	answer := p.ask(name, def)
	if answer == "" {
		return
	}
	b, err := strconv.ParseBool(answer)
	if err != nil {
		p.err = fmt.Errorf("%w: %s=%q", ErrInvalidValue, name, answer)
		return
	}
	*v = b
}
