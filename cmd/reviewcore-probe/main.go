// Command reviewcore-probe wires an in-memory repository and the full set
// of database adapters into a core.Engine, runs a single manuscript
// through search, validation, and recommendation, and prints the result —
// a smoke-test harness for local development, not a production entrypoint
// (the HTTP layer is out of scope for this module).
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/core"
	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/recommendation"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository/memory"
	"github.com/Saaimurugan/manuscript-match-core/internal/search"
	"github.com/Saaimurugan/manuscript-match-core/internal/search/crossref"
	"github.com/Saaimurugan/manuscript-match-core/internal/search/elsevier"
	"github.com/Saaimurugan/manuscript-match-core/internal/search/pubmed"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := config.Default()
	cfg.Search.ElsevierAPIKey = "probe-key"
	cfg = config.ApplyEnvOverrides(cfg, envMap("MANUSCRIPT_MATCH_PUBMED_API_KEY", "MANUSCRIPT_MATCH_ELSEVIER_API_KEY",
		"MANUSCRIPT_MATCH_MAX_RESULTS_PER_DATABASE", "MANUSCRIPT_MATCH_SEARCH_TIMEOUT_MS",
		"MANUSCRIPT_MATCH_MIN_PUBLICATIONS", "MANUSCRIPT_MATCH_MAX_RETRACTIONS",
		"MANUSCRIPT_MATCH_CHECK_INSTITUTIONAL_CONFLICTS", "MANUSCRIPT_MATCH_CHECK_COAUTHOR_CONFLICTS"))

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Error("building adapter registry", "error", err)
		os.Exit(1)
	}

	repo := memory.New()
	engine := core.New(&core.Options{
		Repository: repo,
		Registry:   registry,
		Config:     cfg,
	})

	ctx := context.Background()
	processID := uuid.NewString()

	metadata := domain.NewManuscriptMetadata(
		"Machine learning approaches to reviewer matching",
		"We describe a pipeline for candidate reviewer discovery...",
		[]domain.Author{
			*domain.NewAuthor(uuid.NewString(), "Jane Q. Author"),
		},
		[]domain.Affiliation{
			{InstitutionName: "State University", Country: "US"},
		},
		[]string{"reviewer matching", "bibliometrics", "conflict of interest"},
	)

	process := &domain.Process{
		ID:        processID,
		Title:     metadata.Title,
		Step:      domain.StepDatabaseSearch,
		Status:    domain.StatusSearching,
		Metadata:  *metadata,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := repo.CreateProcess(ctx, process); err != nil {
		logger.Error("creating process", "error", err)
		os.Exit(1)
	}

	terms := domain.NewSearchTermsFromMetadata(metadata)
	status := engine.StartSearch(ctx, processID, terms)
	logger.Info("search started", "processId", processID, "sources", len(status.Progress))

	waitForCompletion(ctx, engine, processID, logger)

	summary, err := engine.ValidateProcessAuthors(ctx, processID, metadata, nil)
	if err != nil {
		logger.Error("validating candidates", "error", err)
		os.Exit(1)
	}
	logger.Info("validation complete", "total", summary.TotalCandidates, "validated", summary.ValidatedCandidates)

	resp, err := engine.GetRecommendations(ctx, processID, recommendation.Filters{}, recommendation.Sort{}, recommendation.Page{Number: 1, Limit: 10})
	if err != nil {
		logger.Error("fetching recommendations", "error", err)
		os.Exit(1)
	}
	logger.Info("recommendations", "total", resp.TotalCount, "filtered", resp.FilteredCount, "suggestions", resp.Suggestions)

	for _, item := range resp.Items {
		logger.Info("candidate",
			"name", item.Candidate.Author.Name,
			"score", item.RelevanceScore,
			"publications", item.Candidate.Author.PublicationCount,
		)
	}
}

// envMap reads the given keys from the process environment, including only
// those actually set — an unset var must leave the default untouched rather
// than overriding it with "".
func envMap(keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			out[k] = v
		}
	}
	return out
}

func buildRegistry(cfg config.Config) (*search.Registry, error) {
	pubmedAdapter := pubmed.New(&pubmed.Options{
		APIKey:        cfg.Search.PubmedAPIKey,
		ContactEmail:  "reviewcore-probe@example.com",
		MaxResults:    cfg.Search.MaxResultsPerDatabase,
		RetryConfig:   cfg.Search.Retry,
		CircuitConfig: cfg.Search.Circuit,
		Timeout:       cfg.Search.SearchTimeout(),
	})

	elsevierAdapter, err := elsevier.New(&elsevier.Options{
		APIKey:        cfg.Search.ElsevierAPIKey,
		ContactEmail:  "reviewcore-probe@example.com",
		MaxResults:    cfg.Search.MaxResultsPerDatabase,
		RetryConfig:   cfg.Search.Retry,
		CircuitConfig: cfg.Search.Circuit,
		Timeout:       cfg.Search.SearchTimeout(),
	})
	if err != nil {
		return nil, err
	}

	wiley, err := crossref.New(&crossref.Options{
		Source:        "WILEY",
		MemberID:      crossref.MemberWiley,
		ContactEmail:  "reviewcore-probe@example.com",
		MaxResults:    cfg.Search.MaxResultsPerDatabase,
		RetryConfig:   cfg.Search.Retry,
		CircuitConfig: cfg.Search.Circuit,
		Timeout:       cfg.Search.SearchTimeout(),
	})
	if err != nil {
		return nil, err
	}

	taylorFrancis, err := crossref.New(&crossref.Options{
		Source:        "TAYLOR_FRANCIS",
		MemberID:      crossref.MemberTaylorFrancis,
		ContactEmail:  "reviewcore-probe@example.com",
		MaxResults:    cfg.Search.MaxResultsPerDatabase,
		RetryConfig:   cfg.Search.Retry,
		CircuitConfig: cfg.Search.Circuit,
		Timeout:       cfg.Search.SearchTimeout(),
	})
	if err != nil {
		return nil, err
	}

	return search.NewRegistry(pubmedAdapter, elsevierAdapter, wiley, taylorFrancis), nil
}

func waitForCompletion(ctx context.Context, engine *core.Engine, processID string, logger *slog.Logger) {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		status := engine.GetSearchStatus(processID)
		if status == nil {
			return
		}
		if status.State == domain.OverallCompleted || status.State == domain.OverallError {
			logger.Info("search settled", "state", status.State, "totalAuthorsFound", status.TotalAuthorsFound)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}
	logger.Warn("search did not settle within probe deadline")
}
