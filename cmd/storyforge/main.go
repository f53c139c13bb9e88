// Command storyforge starts the generation-job orchestrator: an HTTP
// API in front of the catalog store, the job pipeline, and the
// narrative state engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/storyforge/orchestrator/internal/api"
	"github.com/storyforge/orchestrator/internal/backend"
	"github.com/storyforge/orchestrator/internal/catalogdb"
	"github.com/storyforge/orchestrator/internal/config"
	"github.com/storyforge/orchestrator/internal/core"
	"github.com/storyforge/orchestrator/internal/fileorg"
	"github.com/storyforge/orchestrator/internal/intent"
	"github.com/storyforge/orchestrator/internal/jobs"
	"github.com/storyforge/orchestrator/internal/llmclient"
	"github.com/storyforge/orchestrator/internal/monitor"
	"github.com/storyforge/orchestrator/internal/narrative"
	"github.com/storyforge/orchestrator/internal/quality"
	"github.com/storyforge/orchestrator/internal/refindex"
	"github.com/storyforge/orchestrator/internal/repository"
	"github.com/storyforge/orchestrator/internal/resolver"
	"github.com/storyforge/orchestrator/internal/scheduler"
	"github.com/storyforge/orchestrator/internal/worker"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("storyforge v0.1.0")
	fmt.Println("Usage: storyforge serve")
}

func serve() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadDefault()
	if err != nil {
		log.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var database *catalogdb.DB
	if cfg.Database.URL != "" {
		d, err := catalogdb.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Warn("database unavailable, using in-memory storage", "err", err)
		} else {
			database = d
			defer database.Close()
			if err := database.Migrate(ctx); err != nil {
				log.Error("database migration failed", "err", err)
				os.Exit(1)
			}
			log.Info("database connected")
		}
	}

	memCatalog := repository.NewMemoryCatalogRepository()
	var catalog repository.CatalogRepository = memCatalog
	if database != nil {
		catalog = repository.NewPersistentCatalogRepository(memCatalog, database)
	}

	memJobs := repository.NewMemoryJobRepository()
	var jobRepo repository.JobRepository = memJobs
	if database != nil {
		jobRepo = repository.NewPersistentJobRepository(memJobs, database)
	}

	backendConn := backend.New(cfg.Backend.URL, 2.0)
	index := refindex.New(cfg.RefIndex.URL, "storyforge_refs")
	embedder := refindex.NewHashEmbedder(256)
	llm := llmclient.New(cfg.LLM.URL, config.NarrativeLLMTimeout)

	classifier := intent.NewClassifier(llm)
	res := resolver.New(catalog, index, embedder, classifier,
		"checkpoints", "workflows", "loras")

	jobMgr := jobs.New(jobRepo, log)

	files, err := fileorg.New(cfg.Storage.OrganizedDir)
	if err != nil {
		log.Error("file organizer init failed", "err", err)
		os.Exit(1)
	}
	gate := quality.New()

	onComplete := buildCompletionHandler(catalog, files, gate, log)
	mon := monitor.New(backendConn, jobMgr, onComplete, log)

	pool := worker.New(jobMgr, backendConn, mon, cfg.Workers.PoolSize, cfg.Workers.PoolSize*4, log)

	narrativeEngine := narrative.New(catalog, llm)
	hooks := narrative.NewHooks(narrativeEngine, log)

	regenProcessor := buildRegenerationProcessor(catalog, jobMgr, pool, log)
	projectIDsResolver := func(ctx context.Context) []string {
		projects, err := catalog.ListProjects(ctx)
		if err != nil {
			return nil
		}
		ids := make([]string, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		return ids
	}
	sched := scheduler.New(catalog, jobMgr, regenProcessor, projectIDsResolver, log)
	if err := sched.Start(ctx, scheduler.Config{
		RegenerationSweepCron: "*/30 * * * * *",
		JobCleanupCron:        "0 0 0 * * *",
		JobCleanupHours:       72,
	}); err != nil {
		log.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	srv := api.NewServer(catalog, jobMgr, classifier, res, pool, mon,
		narrativeEngine, hooks, gate, files, backendConn, index, log)

	go mon.Run(ctx)

	poolErrs := make(chan error, 1)
	go func() { poolErrs <- pool.Run(ctx) }()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		log.Info("starting storyforge server", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", "err", err)
	}
	<-poolErrs
}

// buildCompletionHandler wires the quality gate and file organizer into
// the status monitor: every job the backend reports complete gets its
// output files organized, validated against the quality contract, and
// the feedback recorded for the learned-elements corpus.
func buildCompletionHandler(catalog repository.CatalogRepository, files *fileorg.Organizer, gate *quality.Gate, log *slog.Logger) monitor.CompletionHandler {
	return func(ctx context.Context, job *core.Job, entry *backend.HistoryEntry) (outputPath string, errMsg string) {
		var sourceFiles []string
		for _, node := range entry.Outputs {
			for _, img := range node.Images {
				if img.AbsPath != "" {
					sourceFiles = append(sourceFiles, img.AbsPath)
				}
			}
		}
		if len(sourceFiles) == 0 {
			return "", "backend reported completion with no output files"
		}

		organized, err := files.OrganizeOutput(job.ID, job.ProjectID, sourceFiles, job.Parameters)
		if err != nil {
			return "", fmt.Sprintf("file organization failed: %v", err)
		}

		expected := quality.ExpectedImage
		if job.Type == core.JobTypeVideo {
			expected = quality.ExpectedVideo
		}

		primary := organized[0]
		result := gate.Validate(primary, job.Parameters, expected)

		feedback := &core.QualityFeedback{
			GenerationID:     core.GenerateID("gen"),
			BackendPromptID:  job.BackendID,
			ProjectID:        job.ProjectID,
			ContractPassed:   result.Passed,
			QualityScore:     result.QualityScore,
			OutputPath:       primary,
			Recommendations:  result.Recommendations,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		}
		coreResult := result.ToCore(paramsFromMap(job.Parameters))
		feedback.StructuralGates = coreResult.StructuralGates
		feedback.MotionGates = coreResult.MotionGates
		feedback.QualityGates = coreResult.QualityGates

		if err := catalog.InsertQualityFeedback(ctx, feedback); err != nil {
			log.Warn("completion: insert quality feedback failed", "job_id", job.ID, "err", err)
		}

		if !result.Passed {
			return primary, fmt.Sprintf("quality contract failed: %s", result.Error)
		}
		return primary, ""
	}
}

func paramsFromMap(m map[string]any) core.GenerationParams {
	var p core.GenerationParams
	if m == nil {
		return p
	}
	if v, ok := m["checkpoint"].(string); ok {
		p.Checkpoint = v
	}
	if v, ok := m["positive_prompt"].(string); ok {
		p.PositivePrompt = v
	}
	if v, ok := m["negative_prompt"].(string); ok {
		p.NegativePrompt = v
	}
	if v, ok := m["width"].(int); ok {
		p.Width = v
	}
	if v, ok := m["height"].(int); ok {
		p.Height = v
	}
	return p
}

// buildRegenerationProcessor turns a pending regeneration_queue row
// into a real generation job: it reloads the owning scene (and shot,
// when the entry names one) and enqueues a job from their current
// prompt material, the same way the HTTP /generate path does.
func buildRegenerationProcessor(catalog repository.CatalogRepository, jobMgr *jobs.Manager, pool *worker.Pool, log *slog.Logger) scheduler.RegenerationProcessor {
	return func(ctx context.Context, entry *scheduler.ProcessableRegeneration) error {
		scene, err := catalog.GetScene(ctx, entry.SceneID)
		if err != nil {
			return err
		}

		prompt := scene.Description
		if entry.ShotID != "" {
			if shot, err := catalog.GetShot(ctx, entry.ShotID); err == nil && shot.MotionPrompt != "" {
				prompt = shot.MotionPrompt
			}
		}

		job, err := jobMgr.CreateJob(ctx, core.JobTypeImage, prompt, nil, scene.ProjectID, "")
		if err != nil {
			return err
		}
		return pool.Enqueue(job.ID)
	}
}
