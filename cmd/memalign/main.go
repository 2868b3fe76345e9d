/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main is the memalign CLI: it wires the registry, the similarity
// index, and the language model caller into the alignment and judgment
// pipelines.
//
// Usage:
//
//	memalign create-judge -name safety -criterion "..." [-instructions "..."] [-min 1] [-max 5]
//	memalign list-judges
//	memalign delete-judge -name safety
//	memalign align -judge safety -feedback "..." [-input "..."] [-expert-score N] [-judge-score N] [-judge-output "..."]
//	memalign align-batch -judge safety -file feedback.jsonl
//	memalign judge -judge safety -input "..." [-context "..."]
//	memalign judge-batch -judge safety -file inputs.jsonl [-output results.jsonl]
//	memalign list-principles -judge safety
//	memalign delete-principle -judge safety -id abc123
//	memalign update-principle -judge safety -id abc123 -text "..."
//	memalign list-examples -judge safety [-query "..."] [-limit 10]
//	memalign delete-example -judge safety -id abc123
//	memalign stats -judge safety
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/memalign/alignment"
	"chainguard.dev/memalign/config"
	"chainguard.dev/memalign/embed"
	"chainguard.dev/memalign/index/pgvector"
	"chainguard.dev/memalign/judgment"
	"chainguard.dev/memalign/llmcaller"
	"chainguard.dev/memalign/memory"
	"chainguard.dev/memalign/registry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: memalign <command> [flags], one of: create-judge, list-judges, delete-judge, align, align-batch, judge, judge-batch, list-principles, delete-principle, update-principle, list-examples, delete-example, stats")
		os.Exit(2)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "loading config: %v", err)
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "initializing: %v", err)
	}
	defer app.close()

	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		clog.FatalContextf(ctx, "%s: %v", os.Args[1], err)
	}
}

// app holds the long-lived dependencies every subcommand draws from,
// constructed once at startup and passed by reference.
type app struct {
	cfg      *config.Config
	registry *registry.Registry
	vectors  *pgvector.Store
	caller   llmcaller.Caller
	stores   *memory.Cache
	out      io.Writer
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := embed.NewOpenAI(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	vectors, err := pgvector.Open(ctx, cfg.DatabaseURL, embedder, cfg.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("opening similarity index: %w", err)
	}
	caller, err := llmcaller.NewAnthropic(cfg.AnthropicAPIKey)
	if err != nil {
		vectors.Close()
		return nil, fmt.Errorf("creating model caller: %w", err)
	}

	return &app{
		cfg:      cfg,
		registry: registry.New(cfg.RegistryDir),
		vectors:  vectors,
		caller:   caller,
		stores: memory.NewCache(func(judge string) (*memory.Store, error) {
			return memory.NewStore(
				vectors.Collection(judge+"_semantic"),
				vectors.Collection(judge+"_episodic"),
			), nil
		}),
		out: os.Stdout,
	}, nil
}

func (a *app) close() {
	a.vectors.Close()
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "create-judge":
		return a.createJudge(ctx, args)
	case "list-judges":
		return a.listJudges(ctx, args)
	case "delete-judge":
		return a.deleteJudge(ctx, args)
	case "align":
		return a.align(ctx, args)
	case "align-batch":
		return a.alignBatch(ctx, args)
	case "judge":
		return a.judge(ctx, args)
	case "judge-batch":
		return a.judgeBatch(ctx, args)
	case "list-principles":
		return a.listPrinciples(ctx, args)
	case "delete-principle":
		return a.deletePrinciple(ctx, args)
	case "update-principle":
		return a.updatePrinciple(ctx, args)
	case "list-examples":
		return a.listExamples(ctx, args)
	case "delete-example":
		return a.deleteExample(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// judgeStore resolves a judge's registry entry and memory store, failing
// when the judge does not exist.
func (a *app) judgeStore(ctx context.Context, judge string) (registry.JudgeConfig, *memory.Store, error) {
	cfg, err := a.registry.Get(ctx, judge)
	if err != nil {
		return registry.JudgeConfig{}, nil, err
	}
	store, err := a.stores.Get(judge)
	if err != nil {
		return registry.JudgeConfig{}, nil, err
	}
	return cfg, store, nil
}

func (a *app) createJudge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-judge", flag.ExitOnError)
	name := fs.String("name", "", "judge name")
	criterion := fs.String("criterion", "", "evaluation criterion")
	instructions := fs.String("instructions", "", "detailed evaluation instructions")
	minScore := fs.Int("min", 1, "minimum score")
	maxScore := fs.Int("max", 5, "maximum score")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := registry.JudgeConfig{
		Name:         *name,
		Criterion:    *criterion,
		Instructions: *instructions,
		ScoreRange:   registry.ScoreRange{Min: *minScore, Max: *maxScore},
	}
	if err := a.registry.Create(ctx, cfg); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created judge %q with score range [%d, %d]\n", cfg.Name, cfg.ScoreRange.Min, cfg.ScoreRange.Max)
	return nil
}

func (a *app) listJudges(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-judges", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	judges, err := a.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(judges) == 0 {
		fmt.Fprintln(a.out, "no judges registered")
		return nil
	}
	for _, j := range judges {
		store, err := a.stores.Get(j.Name)
		if err != nil {
			return err
		}
		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t[%d, %d]\t%d principles\t%d examples\t%s\n",
			j.Name, j.ScoreRange.Min, j.ScoreRange.Max,
			stats.PrincipleCount, stats.ExampleCount, j.Criterion)
	}
	return nil
}

// deleteJudge removes both the judge's memory and its registry entry. The
// memory goes first so a failure leaves the judge listed rather than
// orphaning its collections.
func (a *app) deleteJudge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-judge", flag.ExitOnError)
	name := fs.String("name", "", "judge name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *name)
	if err != nil {
		return err
	}
	if err := store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("deleting judge memory: %w", err)
	}
	a.stores.Forget(*name)
	if err := a.registry.Delete(ctx, *name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted judge %q and all its memory\n", *name)
	return nil
}

func (a *app) align(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("align", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	input := fs.String("input", "", "the input text the feedback concerns")
	feedback := fs.String("feedback", "", "expert feedback text")
	expertScore := fs.Int("expert-score", 0, "score the expert assigned")
	judgeScore := fs.Int("judge-score", 0, "score the judge previously assigned")
	judgeOutput := fs.String("judge-output", "", "the judge's prior output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fb := alignment.Feedback{
		InputText:      *input,
		ExpertFeedback: *feedback,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "expert-score":
			fb.ExpertScore = expertScore
		case "judge-score":
			fb.JudgeScore = judgeScore
		case "judge-output":
			fb.JudgeOutput = judgeOutput
		}
	})

	res, err := a.runAlign(ctx, *judge, fb)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func (a *app) runAlign(ctx context.Context, judge string, fb alignment.Feedback) (*alignment.Result, error) {
	cfg, store, err := a.judgeStore(ctx, judge)
	if err != nil {
		return nil, err
	}
	engine := alignment.NewEngine(store, a.caller, a.cfg.ExtractionModel, a.cfg.SimilarityThreshold)
	return engine.Align(ctx, cfg.Criterion, fb)
}

// batchResult summarizes an align-batch run.
type batchResult struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
}

func (a *app) alignBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("align-batch", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	file := fs.String("file", "", "JSONL file of feedback payloads")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var res batchResult
	err := forEachJSONLine(*file, func(lineno int, line []byte) {
		var fb alignment.Feedback
		if err := json.Unmarshal(line, &fb); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", lineno, err))
			return
		}
		if _, err := a.runAlign(ctx, *judge, fb); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", lineno, err))
			return
		}
		res.Processed++
	})
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

func (a *app) judge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("judge", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	input := fs.String("input", "", "text to score")
	contextText := fs.String("context", "", "optional background for the evaluation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	engine := judgment.NewEngine(store, a.caller, a.cfg.JudgmentModel, a.cfg.RetrievalK)
	res, err := engine.Judge(ctx, cfg, *input, *contextText)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}

// batchInput is one JSONL record for judge-batch.
type batchInput struct {
	InputText string `json:"input_text"`
	Context   string `json:"context,omitempty"`
}

// batchJudgment is one per-line judge-batch result.
type batchJudgment struct {
	Line      int    `json:"line"`
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

func (a *app) judgeBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("judge-batch", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	file := fs.String("file", "", "JSONL file of inputs to score")
	output := fs.String("output", "", "optional JSONL file to write results to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	engine := judgment.NewEngine(store, a.caller, a.cfg.JudgmentModel, a.cfg.RetrievalK)

	var results []batchJudgment
	var res batchResult
	err = forEachJSONLine(*file, func(lineno int, line []byte) {
		var in batchInput
		if err := json.Unmarshal(line, &in); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", lineno, err))
			return
		}
		judged, err := engine.Judge(ctx, cfg, in.InputText, in.Context)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", lineno, err))
			return
		}
		results = append(results, batchJudgment{
			Line:      lineno,
			Score:     judged.Score,
			Reasoning: judged.Reasoning,
		})
		res.Processed++
	})
	if err != nil {
		return err
	}

	if *output != "" {
		if err := writeJSONLines(*output, results); err != nil {
			return err
		}
	}
	return a.printJSON(res)
}

func (a *app) listPrinciples(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-principles", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	principles, err := store.GetAllPrinciples(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(struct {
		JudgeName  string             `json:"judge_name"`
		Total      int                `json:"total"`
		Principles []memory.Principle `json:"principles"`
	}{
		JudgeName:  *judge,
		Total:      len(principles),
		Principles: principles,
	})
}

func (a *app) deletePrinciple(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-principle", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	id := fs.String("id", "", "principle id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	deleted, err := store.DeletePrinciple(ctx, *id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(a.out, "principle %q not found\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "deleted principle %q\n", *id)
	return nil
}

func (a *app) updatePrinciple(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-principle", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	id := fs.String("id", "", "principle id")
	text := fs.String("text", "", "replacement principle text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	updated, err := store.UpdatePrinciple(ctx, *id, *text)
	if err != nil {
		return err
	}
	if updated == nil {
		fmt.Fprintf(a.out, "principle %q not found\n", *id)
		return nil
	}
	return a.printJSON(updated)
}

func (a *app) listExamples(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-examples", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	query := fs.String("query", "", "optional similarity query")
	limit := fs.Int("limit", 10, "maximum examples to return")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	var examples []memory.Example
	if *query != "" {
		examples, err = store.RetrieveExamples(ctx, *query, *limit)
	} else {
		examples, err = store.GetAllExamples(ctx, *limit)
	}
	if err != nil {
		return err
	}
	return a.printJSON(struct {
		JudgeName string           `json:"judge_name"`
		Total     int              `json:"total"`
		Examples  []memory.Example `json:"examples"`
	}{
		JudgeName: *judge,
		Total:     len(examples),
		Examples:  examples,
	})
}

func (a *app) deleteExample(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-example", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	id := fs.String("id", "", "example id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	deleted, err := store.DeleteExample(ctx, *id)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintf(a.out, "example %q not found\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "deleted example %q\n", *id)
	return nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	judge := fs.String("judge", "", "judge name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, store, err := a.judgeStore(ctx, *judge)
	if err != nil {
		return err
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(stats)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// forEachJSONLine calls fn for every non-empty line in a JSONL file. Line
// numbers are 1-based and count blank lines.
func forEachJSONLine(path string, fn func(lineno int, line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(lineno, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}
	return nil
}

func writeJSONLines(path string, records []batchJudgment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
	}
	return f.Close()
}
