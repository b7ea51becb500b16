// Command simulate runs a simulation offline from a cast and an events
// document, printing each round's narration. Runs are archived to a SQLite
// file when -db is given, so they can later be served by the HTTP host.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/techsim/internal/model"
	"github.com/freeeve/techsim/internal/repository/sqlite"
	"github.com/freeeve/techsim/internal/service"
	"github.com/freeeve/techsim/pkg/techsim/document"
)

type options struct {
	castPath   string
	eventsPath string
	seed       string
	shuffle    bool
	recolor    bool
	cycles     int
	maxCycles  int
	dbPath     string
	jsonOut    bool
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.castPath, "cast", "", "Cast document (.toml, .yaml or .json)")
	flag.StringVar(&opts.eventsPath, "events", "", "Events document (.toml, .yaml or .json)")
	flag.StringVar(&opts.seed, "seed", "", "Seed (empty = random)")
	flag.BoolVar(&opts.shuffle, "shuffle", false, "Shuffle tributes across districts")
	flag.BoolVar(&opts.recolor, "recolor", false, "Assign random district colors")
	flag.IntVar(&opts.cycles, "cycles", 0, "Rounds to compute (0 = until complete)")
	flag.IntVar(&opts.maxCycles, "max-cycles", 1000, "Safety cap when running until complete")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite archive path (empty = in-memory)")
	flag.BoolVar(&opts.jsonOut, "json", false, "Output narration as JSON lines")
	flag.BoolVar(&opts.verbose, "v", false, "Log engine decisions")
	flag.Parse()

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if opts.castPath == "" || opts.eventsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: simulate -cast cast.toml -events events.toml [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Warn().Msg("Interrupted, stopping after the current round")
		cancel()
	}()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Error().Err(err).Msg("Simulation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, w io.Writer) error {
	castDoc, castFmt, err := readDocument(opts.castPath)
	if err != nil {
		return err
	}
	eventsDoc, eventsFmt, err := readDocument(opts.eventsPath)
	if err != nil {
		return err
	}

	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = ":memory:"
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.NewSimulationService(store, store, nil, nil)
	r, err := svc.CreateRun(ctx, "cli", service.CreateRunInput{
		CastDoc:      castDoc,
		CastFormat:   string(castFmt),
		EventsDoc:    eventsDoc,
		EventsFormat: string(eventsFmt),
	})
	if err != nil {
		return err
	}
	r, err = svc.ReadyRun(ctx, r.ID, service.ReadyInput{Seed: opts.seed, Shuffle: opts.shuffle, Recolor: opts.recolor})
	if err != nil {
		return err
	}

	p := &printer{w: w, json: opts.jsonOut}
	p.header(r)

	limit := opts.cycles
	if limit <= 0 {
		limit = opts.maxCycles
	}
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := svc.AdvanceRun(ctx, r.ID)
		if err != nil {
			return err
		}
		p.narration(n)
		if n.Complete {
			return p.err
		}
	}
	if opts.cycles <= 0 && ctx.Err() == nil {
		return fmt.Errorf("no winner after %d rounds", opts.maxCycles)
	}
	return p.err
}

func readDocument(path string) (string, document.Format, error) {
	f, err := document.FormatFromPath(path)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), f, nil
}

// printer writes narration as text or JSON lines, keeping the first error.
type printer struct {
	w    io.Writer
	json bool
	err  error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) header(r *model.Run) {
	if p.json {
		p.encode(map[string]any{"run_id": r.ID, "name": r.Name, "seed": r.Seed})
		return
	}
	p.printf("%s (seed %s)\n", r.Name, r.Seed)
}

func (p *printer) narration(n *model.Narration) {
	if p.json {
		p.encode(n)
		return
	}
	p.printf("\n== %s ==\n", n.Cycle)
	if n.Text != "" {
		p.printf("%s\n", n.Text)
	}
	for _, ev := range n.Events {
		p.printf("%s\n", ev.Text)
	}
	if len(n.Idle) > 0 {
		p.printf("(idle: %s)\n", strings.Join(n.Idle, ", "))
	}
	if d := n.DeathReport; d != nil {
		p.printf("\n-- Fallen tributes, day %d --\n%s\n", d.Day, d.Text)
	}
	if n.Complete {
		switch {
		case n.WinningDistrict != "":
			p.printf("\n%s wins: %s\n", n.WinningDistrict, strings.Join(n.Winners, ", "))
		case len(n.Winners) > 0:
			p.printf("\nWinners: %s\n", strings.Join(n.Winners, ", "))
		default:
			p.printf("\nNo survivors.\n")
		}
	}
}

func (p *printer) encode(v any) {
	if p.err != nil {
		return
	}
	p.err = json.NewEncoder(p.w).Encode(v)
}
