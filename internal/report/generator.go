// Package report orchestrates a country report run: it queries OpenAlex,
// computes the derived statistics, persists JSON documents, and renders
// charts. The pipeline is a fixed sequence of steps; a failed step is
// logged, counted, and skipped so the remaining steps still produce their
// part of the report.
package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scholargraph/countrystats/internal/charts"
	"github.com/scholargraph/countrystats/internal/config"
	"github.com/scholargraph/countrystats/internal/domain"
	"github.com/scholargraph/countrystats/internal/observability"
	"github.com/scholargraph/countrystats/internal/openalex"
	"github.com/scholargraph/countrystats/internal/store"
)

// Pipeline step names, used in logs and metric labels.
const (
	StepMetadata      = "metadata"
	StepOpenAccess    = "open_access"
	StepFields        = "fields"
	StepTopAuthors    = "top_authors"
	StepInstitutions  = "top_institutions"
	StepCollaboration = "collaboration"
	StepSummary       = "summary"
)

// OpenAlexClient is the OpenAlex query surface the pipeline needs.
type OpenAlexClient interface {
	CountWorks(ctx context.Context, filters []string) (int, error)
	GroupWorks(ctx context.Context, filters []string, groupBy string) ([]openalex.GroupCount, error)
	ListAuthors(ctx context.Context, filter, sort string, perPage int) ([]openalex.Author, error)
	ListInstitutions(ctx context.Context, filter, sort string, perPage int) ([]openalex.Institution, error)
}

// Params collects the dependencies of a Generator.
type Params struct {
	Config  config.ReportConfig
	Client  OpenAlexClient
	Store   *store.Store
	Charts  *charts.Renderer
	Metrics *observability.Metrics
	Logger  zerolog.Logger

	// Now and NewRunID are overridable for tests. They default to
	// time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string
}

// Generator runs the report pipeline.
type Generator struct {
	cfg      config.ReportConfig
	client   OpenAlexClient
	store    *store.Store
	charts   *charts.Renderer
	metrics  *observability.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	newRunID func() string
}

// New creates a Generator from the given dependencies.
func New(p Params) *Generator {
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.NewRunID == nil {
		p.NewRunID = uuid.NewString
	}
	return &Generator{
		cfg:      p.Config,
		client:   p.Client,
		store:    p.Store,
		charts:   p.Charts,
		metrics:  p.Metrics,
		logger:   p.Logger,
		now:      p.Now,
		newRunID: p.NewRunID,
	}
}

// Run executes the full pipeline. It returns an error only when the
// context is canceled; individual step failures are logged and skipped.
func (g *Generator) Run(ctx context.Context) error {
	period := g.cfg.Period()
	runID := g.newRunID()
	logger := observability.WithReportContext(g.logger, g.cfg.CountryCode, period).
		With().Str("run_id", runID).Logger()

	logger.Info().
		Int("fields", len(g.cfg.Fields)).
		Msg("starting country report")

	start := g.now()

	totalWorks := g.runMetadata(ctx, logger, runID)

	steps := []struct {
		name string
		fn   func(context.Context, zerolog.Logger, int) error
	}{
		{StepOpenAccess, g.runOpenAccess},
		{StepFields, g.runFields},
		{StepTopAuthors, g.runTopAuthors},
		{StepInstitutions, g.runTopInstitutions},
		{StepCollaboration, g.runCollaboration},
		{StepSummary, g.runSummary},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		stepLogger := observability.WithStepContext(logger, step.name)
		stepStart := g.now()

		if err := step.fn(ctx, stepLogger, totalWorks); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.metrics.StepsFailed.WithLabelValues(step.name).Inc()
			stepLogger.Error().Err(err).Msg("step failed, continuing")
			continue
		}

		g.metrics.StepsCompleted.WithLabelValues(step.name).Inc()
		stepLogger.Info().
			Dur("duration", g.now().Sub(stepStart)).
			Msg("step completed")
	}

	logger.Info().
		Dur("duration", g.now().Sub(start)).
		Msg("country report finished")
	return ctx.Err()
}

// runMetadata fetches the national total and persists the run metadata.
// It returns the total so later steps can use it as their denominator;
// on failure the total is zero and percentages degrade to zero.
func (g *Generator) runMetadata(ctx context.Context, logger zerolog.Logger, runID string) int {
	stepLogger := observability.WithStepContext(logger, StepMetadata)

	total, err := g.countWorks(ctx, g.baseFilters())
	if err != nil {
		g.metrics.StepsFailed.WithLabelValues(StepMetadata).Inc()
		stepLogger.Error().Err(err).Msg("step failed, continuing")
		return 0
	}

	meta := domain.Metadata{
		RunID:       runID,
		CountryCode: g.cfg.CountryCode,
		Period:      g.cfg.Period(),
		TotalWorks:  total,
		RetrievedAt: g.now().UTC(),
	}
	if err := g.store.SaveMetadata(meta); err != nil {
		g.metrics.StepsFailed.WithLabelValues(StepMetadata).Inc()
		stepLogger.Error().Err(err).Msg("step failed, continuing")
		return total
	}
	g.metrics.RecordsWritten.Inc()
	g.metrics.StepsCompleted.WithLabelValues(StepMetadata).Inc()

	stepLogger.Info().Int("total_works", total).Msg("step completed")
	return total
}

// runOpenAccess computes the national open-access count and per-status
// distribution.
func (g *Generator) runOpenAccess(ctx context.Context, logger zerolog.Logger, totalWorks int) error {
	totalOA, err := g.countWorks(ctx, append(g.baseFilters(), openalex.OpenAccessFilter()))
	if err != nil {
		return err
	}

	groups, err := g.groupWorks(ctx, g.baseFilters(), "oa_status")
	if err != nil {
		return err
	}

	stats := domain.OAStats{
		TotalOA:      totalOA,
		PercentageOA: domain.Percent(totalOA, totalWorks),
		Breakdown:    statusBreakdown(groups, totalWorks),
	}

	if err := g.store.SaveOAStats(stats); err != nil {
		return err
	}
	g.metrics.RecordsWritten.Inc()

	if err := g.charts.RenderOAStatus(stats); err != nil {
		return err
	}
	if len(stats.Breakdown) > 0 {
		g.metrics.ChartsRendered.Inc()
	}

	logger.Info().
		Int("total_oa", totalOA).
		Float64("percentage_oa", stats.PercentageOA).
		Msg("open access computed")
	return nil
}

// runFields computes per-field counts, open-access shares, and status
// breakdowns. A field whose work count fails is logged and left out; a
// field whose open-access sub-queries fail keeps a partial record.
func (g *Generator) runFields(ctx context.Context, logger zerolog.Logger, totalWorks int) error {
	fields := make([]domain.FieldStats, 0, len(g.cfg.Fields))

	for _, fc := range g.cfg.Fields {
		if err := ctx.Err(); err != nil {
			return err
		}

		fieldFilters := append(g.baseFilters(), openalex.ConceptFilter(fc.ID))

		works, err := g.countWorks(ctx, fieldFilters)
		if err != nil {
			logger.Warn().Err(err).Str("field", fc.Name).Msg("skipping field")
			continue
		}

		stats := domain.FieldStats{
			ConceptID:  fc.ID,
			Name:       fc.Name,
			Works:      works,
			Percentage: domain.Percent(works, totalWorks),
		}

		// A failed open-access sub-query degrades the field to a partial
		// record rather than dropping it.
		worksOA, err := g.countWorks(ctx, append(fieldFilters, openalex.OpenAccessFilter()))
		if err != nil {
			logger.Warn().Err(err).Str("field", fc.Name).Msg("keeping field without open access data")
		} else {
			stats.WorksOA = worksOA
			stats.PercentageOA = domain.Percent(worksOA, works)
		}

		groups, err := g.groupWorks(ctx, fieldFilters, "oa_status")
		if err != nil {
			logger.Warn().Err(err).Str("field", fc.Name).Msg("keeping field without status breakdown")
		} else {
			stats.OAStatus = statusBreakdown(groups, works)
		}

		fields = append(fields, stats)
	}

	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Works > fields[j].Works
	})

	if err := g.store.SaveFieldStats(fields); err != nil {
		return err
	}
	g.metrics.RecordsWritten.Inc()

	if err := g.charts.RenderTopFields(fields); err != nil {
		return err
	}
	if err := g.charts.RenderFieldsOAShare(fields); err != nil {
		return err
	}
	if err := g.charts.RenderFieldsDistribution(fields); err != nil {
		return err
	}
	if len(fields) > 0 {
		g.metrics.ChartsRendered.Add(3)
	}

	logger.Info().Int("fields", len(fields)).Msg("fields computed")
	return nil
}

// runTopAuthors fetches the most productive authors of the country.
func (g *Generator) runTopAuthors(ctx context.Context, logger zerolog.Logger, _ int) error {
	results, err := g.listAuthors(ctx,
		openalex.AuthorCountryFilter(g.cfg.CountryCode),
		"works_count:desc",
		g.cfg.TopAuthorsFetch,
	)
	if err != nil {
		return err
	}

	authors := make([]domain.TopAuthor, 0, len(results))
	for _, a := range results {
		author := domain.TopAuthor{
			ID:        openalex.NormalizeID(a.ID),
			Name:      a.DisplayName,
			ORCID:     openalex.NormalizeORCID(a.Orcid),
			Works:     a.WorksCount,
			Citations: a.CitedByCount,
		}
		if a.LastKnownInstitution != nil {
			author.Institution = a.LastKnownInstitution.DisplayName
			author.InstitutionID = openalex.NormalizeID(a.LastKnownInstitution.ID)
		}
		authors = append(authors, author)
	}
	if len(authors) > g.cfg.TopAuthorsKeep {
		authors = authors[:g.cfg.TopAuthorsKeep]
	}

	if err := g.store.SaveTopAuthors(authors); err != nil {
		return err
	}
	g.metrics.RecordsWritten.Inc()

	if err := g.charts.RenderTopAuthors(authors); err != nil {
		return err
	}
	if len(authors) > 0 {
		g.metrics.ChartsRendered.Add(3)
	}

	logger.Info().Int("authors", len(authors)).Msg("top authors computed")
	return nil
}

// runTopInstitutions fetches the most productive institutions.
func (g *Generator) runTopInstitutions(ctx context.Context, logger zerolog.Logger, _ int) error {
	results, err := g.listInstitutions(ctx,
		openalex.InstitutionCountryFilter(g.cfg.CountryCode),
		"works_count:desc",
		g.cfg.TopInstitutionsFetch,
	)
	if err != nil {
		return err
	}

	insts := make([]domain.TopInstitution, 0, len(results))
	for _, inst := range results {
		insts = append(insts, domain.TopInstitution{
			ID:        openalex.NormalizeID(inst.ID),
			Name:      inst.DisplayName,
			Type:      inst.Type,
			Works:     inst.WorksCount,
			Citations: inst.CitedByCount,
		})
	}
	if len(insts) > g.cfg.TopInstitutionsKeep {
		insts = insts[:g.cfg.TopInstitutionsKeep]
	}

	if err := g.store.SaveTopInstitutions(insts); err != nil {
		return err
	}
	g.metrics.RecordsWritten.Inc()

	if err := g.charts.RenderTopInstitutions(insts); err != nil {
		return err
	}
	if len(insts) > 0 {
		g.metrics.ChartsRendered.Inc()
	}

	logger.Info().Int("institutions", len(insts)).Msg("top institutions computed")
	return nil
}

// runCollaboration computes co-authorship counts with foreign countries
// from the authorships.countries group-by. The home country's own bucket
// is excluded.
func (g *Generator) runCollaboration(ctx context.Context, logger zerolog.Logger, totalWorks int) error {
	groups, err := g.groupWorks(ctx, g.baseFilters(), "authorships.countries")
	if err != nil {
		return err
	}

	entries := make([]domain.CollaborationEntry, 0, len(groups))
	for _, grp := range groups {
		code := openalex.NormalizeCountryKey(grp.Key)
		if code == "" || strings.EqualFold(code, g.cfg.CountryCode) {
			continue
		}
		entries = append(entries, domain.CollaborationEntry{
			CountryCode: code,
			Works:       grp.Count,
			Percentage:  domain.Percent(grp.Count, totalWorks),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Works > entries[j].Works
	})

	if err := g.store.SaveCollaboration(entries); err != nil {
		return err
	}
	g.metrics.RecordsWritten.Inc()

	if err := g.charts.RenderCollaboration(entries); err != nil {
		return err
	}
	if len(entries) > 0 {
		g.metrics.ChartsRendered.Inc()
	}

	logger.Info().Int("countries", len(entries)).Msg("collaboration computed")
	return nil
}

// runSummary assembles the consolidated summary from the documents the
// earlier steps persisted. Reads are tolerant: a missing or unreadable
// document contributes zero values instead of failing the step.
func (g *Generator) runSummary(_ context.Context, logger zerolog.Logger, _ int) error {
	authors, err := g.store.LoadTopAuthors()
	if err != nil {
		logger.Warn().Err(err).Msg("summary proceeding without top authors")
	}
	insts, err := g.store.LoadTopInstitutions()
	if err != nil {
		logger.Warn().Err(err).Msg("summary proceeding without top institutions")
	}
	collab, err := g.store.LoadCollaboration()
	if err != nil {
		logger.Warn().Err(err).Msg("summary proceeding without collaboration")
	}

	var sum domain.Summary

	sum.Authors.TotalAnalyzed = len(authors)
	byWorks := make([]domain.TopAuthor, len(authors))
	copy(byWorks, authors)
	sort.SliceStable(byWorks, func(i, j int) bool { return byWorks[i].Works > byWorks[j].Works })
	for _, a := range byWorks {
		sum.Authors.MostProductive = append(sum.Authors.MostProductive, domain.AuthorRef{
			Name:        a.Name,
			Institution: a.Institution,
			Works:       a.Works,
		})
	}
	byCitations := make([]domain.TopAuthor, len(authors))
	copy(byCitations, authors)
	sort.SliceStable(byCitations, func(i, j int) bool { return byCitations[i].Citations > byCitations[j].Citations })
	for _, a := range byCitations {
		sum.Authors.MostCited = append(sum.Authors.MostCited, domain.AuthorRef{
			Name:        a.Name,
			Institution: a.Institution,
			Citations:   a.Citations,
		})
	}

	sum.Institutions.TotalAnalyzed = len(insts)
	for _, inst := range insts {
		sum.Institutions.MostProductive = append(sum.Institutions.MostProductive, domain.InstitutionRef{
			Name:      inst.Name,
			Works:     inst.Works,
			Citations: inst.Citations,
		})
	}

	sum.Collaboration.TotalCountries = len(collab)
	sum.Collaboration.TopCollaborators = collab

	if err := g.store.SaveSummary(sum); err != nil {
		return err
	}
	g.metrics.RecordsWritten.Inc()

	logger.Info().Msg("summary assembled")
	return nil
}

// baseFilters returns the country and period filters every works query
// starts from. A fresh slice is returned so callers can append freely.
func (g *Generator) baseFilters() []string {
	return []string{
		openalex.CountryFilter(g.cfg.CountryCode),
		openalex.PeriodFilter(g.cfg.Period()),
	}
}

// countWorks wraps the client call with API metrics.
func (g *Generator) countWorks(ctx context.Context, filters []string) (int, error) {
	start := g.now()
	n, err := g.client.CountWorks(ctx, filters)
	g.observeAPI("works", start, err)
	return n, err
}

func (g *Generator) groupWorks(ctx context.Context, filters []string, groupBy string) ([]openalex.GroupCount, error) {
	start := g.now()
	groups, err := g.client.GroupWorks(ctx, filters, groupBy)
	g.observeAPI("works", start, err)
	return groups, err
}

func (g *Generator) listAuthors(ctx context.Context, filter, sortBy string, perPage int) ([]openalex.Author, error) {
	start := g.now()
	authors, err := g.client.ListAuthors(ctx, filter, sortBy, perPage)
	g.observeAPI("authors", start, err)
	return authors, err
}

func (g *Generator) listInstitutions(ctx context.Context, filter, sortBy string, perPage int) ([]openalex.Institution, error) {
	start := g.now()
	insts, err := g.client.ListInstitutions(ctx, filter, sortBy, perPage)
	g.observeAPI("institutions", start, err)
	return insts, err
}

func (g *Generator) observeAPI(endpoint string, start time.Time, err error) {
	g.metrics.APIRequests.WithLabelValues(endpoint).Inc()
	g.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(g.now().Sub(start).Seconds())
	if err != nil {
		g.metrics.APIRequestsFailed.WithLabelValues(endpoint).Inc()
	}
}

// statusBreakdown converts group-by buckets to per-status shares sorted
// by count descending. Shares are relative to total.
func statusBreakdown(groups []openalex.GroupCount, total int) []domain.OAStatusShare {
	if len(groups) == 0 {
		return nil
	}
	breakdown := make([]domain.OAStatusShare, 0, len(groups))
	for _, grp := range groups {
		breakdown = append(breakdown, domain.OAStatusShare{
			Status:     grp.Key,
			Count:      grp.Count,
			Percentage: domain.Percent(grp.Count, total),
		})
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Count > breakdown[j].Count
	})
	return breakdown
}
