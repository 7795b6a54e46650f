package api

import (
	"context"
	"fmt"
	"strings"

	"accession/internal/catalogue"
	"accession/internal/insertion"
	"accession/internal/metadata"
	"accession/internal/services"
	"accession/internal/validation"
	"accession/internal/workflow"
)

// CatalogueService exposes workflow and insertion operations returning API
// DTOs. The CLI and the HTTP API both go through it.
type CatalogueService struct {
	manager *workflow.Manager
	engine  *insertion.Engine
	fetcher metadata.Fetcher
}

// NewCatalogueService constructs the facade. fetcher may be nil when
// metadata lookup is disabled.
func NewCatalogueService(manager *workflow.Manager, engine *insertion.Engine, fetcher metadata.Fetcher) *CatalogueService {
	return &CatalogueService{manager: manager, engine: engine, fetcher: fetcher}
}

// Intake submits a new book and runs the metadata step.
func (s *CatalogueService) Intake(ctx context.Context, req workflow.IntakeRequest) (*IntakeResponse, error) {
	result, err := s.manager.Intake(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := &IntakeResponse{
		Entry:         FromEntry(result.Entry),
		MetadataFound: result.MetadataFound,
	}
	if result.MetadataError != nil {
		resp.MetadataError = result.MetadataError.Error()
	}
	return resp, nil
}

// Lookup previews a metadata fetch without creating an entry.
func (s *CatalogueService) Lookup(ctx context.Context, q metadata.Query) (*LookupResponse, error) {
	if s.fetcher == nil {
		return nil, services.Wrap(services.ErrValidation, "api", "lookup", "metadata lookup is disabled", nil)
	}
	if strings.TrimSpace(q.ISBN) == "" && strings.TrimSpace(q.Title) == "" {
		return nil, &validation.RequestError{Fields: []validation.FieldError{{
			Field:   "isbn",
			Tag:     "required_without",
			Message: "isbn or title is required",
		}}}
	}
	doc, err := s.fetcher.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return &LookupResponse{Found: doc != nil, Metadata: doc}, nil
}

// Get returns a single entry.
func (s *CatalogueService) Get(ctx context.Context, id int64) (*Entry, error) {
	entry, err := s.manager.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromEntry(entry)
	return &dto, nil
}

// List returns entries in the given statuses, or the review list when none
// are given.
func (s *CatalogueService) List(ctx context.Context, statuses ...string) ([]Entry, error) {
	parsed, err := ParseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	entries, err := s.manager.ListPending(ctx, parsed...)
	if err != nil {
		return nil, err
	}
	return FromEntries(entries), nil
}

// Edit applies librarian field changes.
func (s *CatalogueService) Edit(ctx context.Context, id int64, edits workflow.Edits) (*Entry, error) {
	entry, err := s.manager.Edit(ctx, id, edits)
	if err != nil {
		return nil, err
	}
	dto := FromEntry(entry)
	return &dto, nil
}

// Confirm records an approve or reject decision.
func (s *CatalogueService) Confirm(ctx context.Context, id int64, decision workflow.Decision) (*Entry, error) {
	entry, err := s.manager.Confirm(ctx, id, decision)
	if err != nil {
		return nil, err
	}
	dto := FromEntry(entry)
	return &dto, nil
}

// Insert materializes an approved entry into the catalogue.
func (s *CatalogueService) Insert(ctx context.Context, id int64) (*InsertResult, error) {
	result, err := s.engine.Insert(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromInsertResult(result)
	return &dto, nil
}

// AuditTrail returns the entry's audit entries in order.
func (s *CatalogueService) AuditTrail(ctx context.Context, id int64) ([]AuditEntry, error) {
	entries, err := s.manager.AuditTrail(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromAuditEntries(entries), nil
}

// Stats returns counts per status.
func (s *CatalogueService) Stats(ctx context.Context) (*StatsResponse, error) {
	stats, err := s.manager.Stats(ctx)
	if err != nil {
		return nil, err
	}
	resp := MergeStats(stats)
	return &resp, nil
}

// ParseStatuses converts status filter strings. Comma separated values are
// split. Unknown names are a validation error.
func ParseStatuses(values []string) ([]catalogue.Status, error) {
	var out []catalogue.Status
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := catalogue.ParseStatus(part)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", services.ErrValidation, err)
			}
			out = append(out, status)
		}
	}
	return out, nil
}
