package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/roimob-api/internal/jobs"
	"github.com/sjperalta/roimob-api/internal/models"
	"github.com/sjperalta/roimob-api/internal/projection"
	"github.com/sjperalta/roimob-api/internal/repository"
	"github.com/sjperalta/roimob-api/internal/statemachine"
	"github.com/sjperalta/roimob-api/pkg/logger"
)

// ProjectionInput is what a broker submits to create, preview or edit a projection.
// Scenario keys and strategy names are accepted in Portuguese or English.
type ProjectionInput struct {
	Title             string                   `json:"title"`
	ClientID          uint                     `json:"client_id"`
	PropertyID        uint                     `json:"property_id"`
	Terms             projection.PurchaseTerms `json:"terms"`
	CorrectionIndex   *string                  `json:"correction_index"`
	PostDeliveryIndex *string                  `json:"post_delivery_index"`
	Strategies        []string                 `json:"strategies"`
	ActiveScenario    string                   `json:"active_scenario"`
	Scenarios         ScenarioInputs           `json:"scenarios"`
	FurnishingCosts   float64                  `json:"furnishing_costs"`
	CondoFees         float64                  `json:"condo_fees"`
	PropertyTax       float64                  `json:"property_tax"`
}

// ScenarioInputs holds the parameters per canonical scenario. Keys may be sent in
// Portuguese or English; each entry is decoded over the parameters already present,
// so an edit touching one field keeps the others.
type ScenarioInputs map[projection.Scenario]projection.ScenarioParameters

// DefaultScenarioInputs seeds the creation defaults for a delivery horizon.
func DefaultScenarioInputs(deliveryMonths int) ScenarioInputs {
	return ScenarioInputs(projection.DefaultScenarios(deliveryMonths))
}

func (m *ScenarioInputs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if *m == nil {
		*m = make(ScenarioInputs, len(raw))
	}
	seen := make(map[projection.Scenario]string, len(raw))
	for key, msg := range raw {
		sc, err := projection.ParseScenario(key)
		if err != nil {
			return err
		}
		if other, dup := seen[sc]; dup {
			return fmt.Errorf("%w: cenários %q e %q são o mesmo", ErrInvalidInput, other, key)
		}
		seen[sc] = key

		params := (*m)[sc]
		if err := json.Unmarshal(msg, &params); err != nil {
			return err
		}
		(*m)[sc] = params
	}
	return nil
}

// InputFromProjection rebuilds the editable input of a stored projection.
// Edits are applied on top of it, so fields missing from a PATCH body keep their value.
func InputFromProjection(p *models.Projection) ProjectionInput {
	in := ProjectionInput{
		Title:             p.Title,
		ClientID:          p.ClientID,
		PropertyID:        p.PropertyID,
		Terms:             p.Terms(),
		CorrectionIndex:   p.CorrectionIndex,
		PostDeliveryIndex: p.PostDeliveryIndex,
		ActiveScenario:    string(p.ActiveScenario),
		Scenarios:         make(ScenarioInputs, 3),
		FurnishingCosts:   p.FurnishingCosts,
		CondoFees:         p.CondoFees,
		PropertyTax:       p.PropertyTax,
	}
	for _, st := range p.Strategies {
		in.Strategies = append(in.Strategies, string(st))
	}
	for sc, params := range p.Scenarios() {
		in.Scenarios[sc] = params
	}
	return in
}

// engineInput canonicalizes the submitted names and fills scenarios that were not sent
// with the creation defaults for the delivery horizon.
func (in ProjectionInput) engineInput() (projection.Input, error) {
	terms := in.Terms

	kind, err := projection.ParsePlanKind(string(terms.PlanKind))
	if err != nil {
		return projection.Input{}, err
	}
	terms.PlanKind = kind

	if terms.Boost != nil {
		boost := *terms.Boost
		if boost.Value > 0 || boost.Periodicity != "" {
			per, err := projection.ParsePeriodicity(string(boost.Periodicity))
			if err != nil {
				return projection.Input{}, err
			}
			boost.Periodicity = per
		}
		terms.Boost = &boost
	}

	strategies, err := projection.ParseStrategies(in.Strategies)
	if err != nil {
		return projection.Input{}, err
	}

	active := projection.ScenarioStandard
	if strings.TrimSpace(in.ActiveScenario) != "" {
		if active, err = projection.ParseScenario(in.ActiveScenario); err != nil {
			return projection.Input{}, err
		}
	}

	scenarios := projection.DefaultScenarios(terms.DeliveryMonths)
	for sc, params := range in.Scenarios {
		scenarios[sc] = params
	}

	return projection.Input{
		Terms:          terms,
		Scenarios:      scenarios,
		Strategies:     strategies,
		ActiveScenario: active,
	}, nil
}

func (in ProjectionInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: título é obrigatório", ErrInvalidInput)
	}
	if in.ClientID == 0 {
		return fmt.Errorf("%w: cliente é obrigatório", ErrInvalidInput)
	}
	if in.PropertyID == 0 {
		return fmt.Errorf("%w: imóvel é obrigatório", ErrInvalidInput)
	}
	if in.Terms.ListPrice <= 0 {
		return fmt.Errorf("%w: valor de tabela deve ser positivo", ErrInvalidInput)
	}
	if in.Terms.DeliveryMonths < 0 || in.Terms.PaymentMonths < 0 {
		return fmt.Errorf("%w: prazos não podem ser negativos", ErrInvalidInput)
	}
	for _, idx := range []*string{in.CorrectionIndex, in.PostDeliveryIndex} {
		if name := normalizeIndexName(idx); name != nil && !models.IsValidIndexType(*name) {
			return fmt.Errorf("%w: %q", ErrInvalidIndexType, *idx)
		}
	}
	return nil
}

// ProjectionService owns the projection lifecycle: evaluation, persistence and status changes
type ProjectionService struct {
	repo       repository.ProjectionRepository
	clients    repository.ClientRepository
	properties repository.PropertyRepository
	engine     *projection.Engine
	audit      *AuditService
	worker     *jobs.Worker
	now        func() time.Time
}

func NewProjectionService(
	repo repository.ProjectionRepository,
	clients repository.ClientRepository,
	properties repository.PropertyRepository,
	engine *projection.Engine,
	audit *AuditService,
	worker *jobs.Worker,
) *ProjectionService {
	return &ProjectionService{
		repo:       repo,
		clients:    clients,
		properties: properties,
		engine:     engine,
		audit:      audit,
		worker:     worker,
		now:        time.Now,
	}
}

// Preview evaluates the input without saving anything
func (s *ProjectionService) Preview(ctx context.Context, in ProjectionInput) (*projection.CalculationResults, error) {
	engineIn, err := in.engineInput()
	if err != nil {
		return nil, err
	}
	return s.engine.Evaluate(engineIn)
}

// Create evaluates and stores a new draft projection with its ledger rows
func (s *ProjectionService) Create(ctx context.Context, meta RequestMeta, in ProjectionInput) (*models.Projection, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, meta.UserID, in); err != nil {
		return nil, err
	}
	engineIn, err := in.engineInput()
	if err != nil {
		return nil, err
	}
	results, err := s.engine.Evaluate(engineIn)
	if err != nil {
		return nil, err
	}

	p := &models.Projection{
		UserID: meta.UserID,
		Status: models.ProjectionStatusDraft,
	}
	s.apply(p, in, engineIn, results)

	if err := s.repo.Create(ctx, p, s.calculations(p, results)); err != nil {
		return nil, fmt.Errorf("failed to create projection: %w", err)
	}

	s.audit.Log(ctx, meta, models.AuditCreate, models.EntityProjection, p.ID,
		fmt.Sprintf("Projeção #%d criada: %s", p.UserSequentialID, p.Title))
	logger.Info("projection created", "projection_id", p.ID, "user_id", meta.UserID, "roi", results.ROI)

	return s.reload(ctx, p)
}

// Get returns a projection visible to the caller
func (s *ProjectionService) Get(ctx context.Context, meta RequestMeta, id uint) (*models.Projection, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !canAccess(meta, p.UserID) {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns the caller's projections; admins see every broker's
func (s *ProjectionService) List(ctx context.Context, meta RequestMeta, query *repository.ProjectionQuery) ([]models.Projection, int64, error) {
	query.UserID = meta.UserID
	query.IsAdmin = meta.IsAdmin
	return s.repo.List(ctx, query)
}

// Update recomputes the projection from the edited input and replaces the row and its
// ledger in one transaction. The projection keeps its ID and status.
func (s *ProjectionService) Update(ctx context.Context, meta RequestMeta, id uint, in ProjectionInput) (*models.Projection, error) {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return nil, err
	}
	if !p.IsEditable() {
		return nil, ErrNotEditable
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ClientID != p.ClientID || in.PropertyID != p.PropertyID {
		if err := s.checkReferences(ctx, p.UserID, in); err != nil {
			return nil, err
		}
	}
	engineIn, err := in.engineInput()
	if err != nil {
		return nil, err
	}
	results, err := s.engine.Evaluate(engineIn)
	if err != nil {
		return nil, err
	}

	s.apply(p, in, engineIn, results)
	if err := s.repo.Replace(ctx, p, s.calculations(p, results)); err != nil {
		return nil, fmt.Errorf("failed to update projection: %w", notFound(err))
	}

	s.audit.Log(ctx, meta, models.AuditUpdate, models.EntityProjection, p.ID,
		fmt.Sprintf("Projeção #%d atualizada", p.UserSequentialID))
	return s.reload(ctx, p)
}

// Recalculate re-runs the engine on the stored input, e.g. after the engine settings change
func (s *ProjectionService) Recalculate(ctx context.Context, meta RequestMeta, id uint) (*models.Projection, error) {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return nil, err
	}
	if !p.IsEditable() {
		return nil, ErrNotEditable
	}
	if err := s.recalculate(ctx, p); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, meta, models.AuditRecalculate, models.EntityProjection, p.ID, nil)
	return p, nil
}

// RecalculateAsync queues a recalculation on the background worker
func (s *ProjectionService) RecalculateAsync(ctx context.Context, meta RequestMeta, id uint) error {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return err
	}
	if !p.IsEditable() {
		return ErrNotEditable
	}
	s.worker.EnqueueAsync(fmt.Sprintf("recalculate_projection_%d", id), func(jobCtx context.Context) error {
		_, err := s.Recalculate(jobCtx, meta, id)
		return err
	})
	return nil
}

func (s *ProjectionService) recalculate(ctx context.Context, p *models.Projection) error {
	in := p.EngineInput()
	results, err := s.engine.Evaluate(in)
	if err != nil {
		return err
	}
	s.setResults(p, results)
	if err := s.repo.Replace(ctx, p, s.calculations(p, results)); err != nil {
		return fmt.Errorf("failed to save recalculation: %w", notFound(err))
	}
	return nil
}

// RecalculateIndexed applies a new monthly rate to every active projection corrected by
// indexType and recomputes them. Failures are logged per projection and skipped.
func (s *ProjectionService) RecalculateIndexed(ctx context.Context, indexType string, monthlyRate float64) ([]models.Projection, error) {
	projections, err := s.repo.FindByCorrectionIndex(ctx, indexType)
	if err != nil {
		return nil, err
	}

	var updated []models.Projection
	for i := range projections {
		p := &projections[i]
		if p.CorrectionIndex != nil && *p.CorrectionIndex == indexType {
			p.MonthlyCorrection = monthlyRate
		}
		if p.PostDeliveryIndex != nil && *p.PostDeliveryIndex == indexType {
			p.PostDeliveryCorrection = monthlyRate
		}
		if err := s.recalculate(ctx, p); err != nil {
			logger.Error("indexed recalculation failed", "projection_id", p.ID, "index", indexType, "error", err)
			continue
		}
		s.audit.Log(ctx, RequestMeta{UserID: p.UserID}, models.AuditRecalculate, models.EntityProjection, p.ID,
			map[string]interface{}{"index": indexType, "monthly_rate": monthlyRate})
		updated = append(updated, *p)
	}
	logger.Info("indexed recalculation finished", "index", indexType, "matched", len(projections), "updated", len(updated))
	return updated, nil
}

// Delete removes the projection, its ledger rows and share links
func (s *ProjectionService) Delete(ctx context.Context, meta RequestMeta, id uint) error {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return notFound(err)
	}
	s.audit.Log(ctx, meta, models.AuditDelete, models.EntityProjection, p.ID,
		fmt.Sprintf("Projeção #%d excluída: %s", p.UserSequentialID, p.Title))
	return nil
}

// DeleteCalculations drops the stored ledger and cached results, returning how many rows went away
func (s *ProjectionService) DeleteCalculations(ctx context.Context, meta RequestMeta, id uint) (int64, error) {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return 0, err
	}
	if !p.IsEditable() {
		return 0, ErrNotEditable
	}
	deleted, err := s.repo.DeleteCalculations(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	s.audit.Log(ctx, meta, models.AuditDelete, models.EntityProjection, p.ID,
		fmt.Sprintf("%d linhas de cálculo excluídas", deleted))
	return deleted, nil
}

// Publish makes a calculated draft available for sharing
func (s *ProjectionService) Publish(ctx context.Context, meta RequestMeta, id uint) (*models.Projection, error) {
	return s.transition(ctx, meta, id, statemachine.EventPublish)
}

// Archive freezes the projection
func (s *ProjectionService) Archive(ctx context.Context, meta RequestMeta, id uint) (*models.Projection, error) {
	return s.transition(ctx, meta, id, statemachine.EventArchive)
}

// Restore moves an archived projection back to draft
func (s *ProjectionService) Restore(ctx context.Context, meta RequestMeta, id uint) (*models.Projection, error) {
	return s.transition(ctx, meta, id, statemachine.EventRestore)
}

func (s *ProjectionService) transition(ctx context.Context, meta RequestMeta, id uint, event string) (*models.Projection, error) {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return nil, err
	}

	from := p.Status
	if err := statemachine.NewProjectionFSM(p).Fire(ctx, event); err != nil {
		if errors.Is(err, statemachine.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: %s → %s", ErrInvalidState, from, event)
		}
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	s.audit.Log(ctx, meta, models.AuditTransition, models.EntityProjection, p.ID,
		map[string]string{"from": from, "to": p.Status, "event": event})
	return p, nil
}

// Ledger returns the stored ledger of a scenario, the active one when sc is empty.
// Projections saved before ledger rows were persisted fall back to the cached results.
func (s *ProjectionService) Ledger(ctx context.Context, meta RequestMeta, id uint, sc projection.Scenario) (*models.Projection, []projection.LedgerRow, error) {
	p, err := s.Get(ctx, meta, id)
	if err != nil {
		return nil, nil, err
	}
	if sc == "" {
		sc = p.ActiveScenario
		if p.CalculationResults != nil {
			sc = p.CalculationResults.Scenario
		}
	}

	calcs, err := s.repo.Calculations(ctx, p.ID, sc)
	if err != nil {
		return nil, nil, err
	}
	if len(calcs) > 0 {
		return p, models.LedgerRows(calcs), nil
	}
	if p.CalculationResults != nil && p.CalculationResults.Scenario == sc {
		return p, p.CalculationResults.Ledger, nil
	}
	return p, []projection.LedgerRow{}, nil
}

// apply copies the input and the fresh results onto the row
func (s *ProjectionService) apply(p *models.Projection, in ProjectionInput, engineIn projection.Input, results *projection.CalculationResults) {
	p.Title = strings.TrimSpace(in.Title)
	p.ClientID = in.ClientID
	p.PropertyID = in.PropertyID
	p.SetTerms(engineIn.Terms)
	p.CorrectionIndex = normalizeIndexName(in.CorrectionIndex)
	p.PostDeliveryIndex = normalizeIndexName(in.PostDeliveryIndex)
	p.Strategies = results.Strategies
	p.ActiveScenario = engineIn.ActiveScenario
	p.SetScenarios(engineIn.Scenarios)
	p.FurnishingCosts = in.FurnishingCosts
	p.CondoFees = in.CondoFees
	p.PropertyTax = in.PropertyTax
	s.setResults(p, results)
}

func (s *ProjectionService) setResults(p *models.Projection, results *projection.CalculationResults) {
	at := s.now()
	p.CalculationResults = results
	p.CalculatedAt = &at
}

// calculations maps the ledger to rows tagged with the scenario and its sale month
func (s *ProjectionService) calculations(p *models.Projection, results *projection.CalculationResults) []models.ProjectionCalculation {
	saleMonth := 0
	if params, ok := p.Scenarios()[results.Scenario]; ok {
		saleMonth = params.FutureSale.InvestmentPeriodMonths
	}
	return models.NewProjectionCalculations(p.ID, results.Scenario, saleMonth, results.Ledger)
}

func (s *ProjectionService) checkReferences(ctx context.Context, userID uint, in ProjectionInput) error {
	if _, err := s.clients.FindByID(ctx, userID, in.ClientID); err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return fmt.Errorf("%w: cliente %d não encontrado", ErrInvalidInput, in.ClientID)
		}
		return err
	}
	if _, err := s.properties.FindByID(ctx, userID, in.PropertyID); err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return fmt.Errorf("%w: imóvel %d não encontrado", ErrInvalidInput, in.PropertyID)
		}
		return err
	}
	return nil
}

// reload fetches the row again so the response carries client and property
func (s *ProjectionService) reload(ctx context.Context, p *models.Projection) (*models.Projection, error) {
	fresh, err := s.repo.FindByID(ctx, p.ID)
	if err != nil {
		logger.Warn("failed to reload projection", "projection_id", p.ID, "error", err)
		return p, nil
	}
	return fresh, nil
}

func canAccess(meta RequestMeta, ownerID uint) bool {
	return meta.IsAdmin || meta.UserID == ownerID
}

// normalizeIndexName lowercases an index name; blank means no index
func normalizeIndexName(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}
