// Package kernel is the execution kernel's composition root: it wires
// C1-C11 into one object and exposes the control flow spec.md §2
// describes — "C6 classifies, C1 checks for a reusable artifact, and
// failing that C7 decomposes the request into steps each run through
// C8 synthesize / C9 test / C10 repair, registered by C5 and stored by
// C1" — plus the background path driving C3/C4/C2. There is no single
// teacher file to ground this on directly; it follows the teacher's own
// main.go/root.go convention of a flat constructor that builds every
// subsystem in dependency order and returns one handle, rather than a
// global registry of singletons.
package kernel

import (
	"context"
	"fmt"

	"kernelforge/internal/config"
	"kernelforge/internal/cron"
	"kernelforge/internal/dispatcher"
	"kernelforge/internal/embedding"
	"kernelforge/internal/fixpattern"
	"kernelforge/internal/harness"
	"kernelforge/internal/llm"
	"kernelforge/internal/logging"
	"kernelforge/internal/planner"
	"kernelforge/internal/registry"
	"kernelforge/internal/repair"
	"kernelforge/internal/scheduler"
	"kernelforge/internal/store"
	"kernelforge/internal/synth"
	"kernelforge/internal/tools"
	"kernelforge/internal/workflow"
)

// Kernel holds every component and the shared resources they depend on.
type Kernel struct {
	cfg *config.Config

	store    *store.Store
	embedder embedding.EmbeddingEngine
	llmc     *llm.Client
	fixes    *fixpattern.Library
	sched    *scheduler.Scheduler
	cronMgr  *cron.Manager
	dispatch *dispatcher.Dispatcher
	reg      *registry.Registry
	runner   *registry.Runner
	toolsReg *tools.Registry

	planner    *planner.Planner
	decomposer *workflow.Decomposer
	synth      *synth.Synthesizer
	harness    *harness.Harness
	repair     *repair.Engine
}

// New builds a Kernel from cfg, constructing every component in
// dependency order: store and embedding first (nothing else can run
// without durable storage and a way to vectorize text), then the LLM
// client, then everything that consumes either.
func New(ctx context.Context, cfg *config.Config) (*Kernel, error) {
	log := logging.Get(logging.CategoryBoot)
	log.Infow("booting kernel", "name", cfg.Name, "version", cfg.Version)

	st, err := store.Open(ctx, cfg.Store, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("kernel: open store: %w", err)
	}

	emb, err := embedding.NewEngine(toEmbeddingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("kernel: build embedding engine: %w", err)
	}

	llmc, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("kernel: build llm client: %w", err)
	}

	fixes := fixpattern.New(st, emb, cfg.Repair)

	sched := scheduler.New(cfg.Scheduler)

	cronMgr, err := cron.New(cfg.Cron, st, emb, llmc)
	if err != nil {
		return nil, fmt.Errorf("kernel: build cron manager: %w", err)
	}

	dispatch := dispatcher.New(sched, cronMgr, 0)

	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("kernel: open registry: %w", err)
	}

	runner, err := registry.NewRunner(cfg.Execution)
	if err != nil {
		return nil, fmt.Errorf("kernel: build runner: %w", err)
	}

	toolsReg := tools.NewRegistry()
	if err := tools.RegisterBuiltins(toolsReg, newGenerator(llmc)); err != nil {
		return nil, fmt.Errorf("kernel: register builtin tools: %w", err)
	}
	if err := registerSubprocessTools(toolsReg, runner, cfg.Execution); err != nil {
		return nil, fmt.Errorf("kernel: register subprocess tools: %w", err)
	}

	k := &Kernel{
		cfg:      cfg,
		store:    st,
		embedder: emb,
		llmc:     llmc,
		fixes:    fixes,
		sched:    sched,
		cronMgr:  cronMgr,
		dispatch: dispatch,
		reg:      reg,
		runner:   runner,
		toolsReg: toolsReg,

		planner:    planner.New(llmc, st, emb),
		decomposer: workflow.New(llmc),
		synth:      synth.New(llmc, toolsReg, fixes),
		harness:    harness.New(llmc, runner),
		repair:     repair.New(llmc, fixes),
	}

	log.Infow("kernel ready")
	return k, nil
}

// Registry exposes C5's node index for inspection (kernelctl registry list).
func (k *Kernel) Registry() *registry.Registry { return k.reg }

// Scheduler exposes C2's queue/throughput snapshot (kernelctl stats).
func (k *Kernel) Scheduler() *scheduler.Scheduler { return k.sched }

// Cron exposes C3's scheduled-task ledger (kernelctl cron).
func (k *Kernel) Cron() *cron.Manager { return k.cronMgr }

// Close releases every component that owns an OS resource.
func (k *Kernel) Close() error {
	var errs []error
	if err := k.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := k.reg.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := k.llmc.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("kernel: close: %v", errs)
	}
	return nil
}

func toEmbeddingConfig(cfg *config.Config) embedding.Config {
	return embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.LLM.APIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       "SEMANTIC_SIMILARITY",
	}
}
