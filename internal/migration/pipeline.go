package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"magewoo/internal/models"
	"magewoo/internal/services/magento"
)

// pageSource is the slice of the Magento client the pipelines consume.
type pageSource interface {
	FetchPage(ctx context.Context, kind models.EntityKind, page, limit int) ([]json.RawMessage, int, error)
}

// targetStore is the slice of the catalog store the pipelines write through.
type targetStore interface {
	FindLocalID(kind models.EntityKind, externalID string) (string, bool, error)
	UpsertProduct(externalID string, p *models.Product) (string, error)
	UpsertCategory(externalID string, c *models.Category) (string, error)
	UpsertCustomer(externalID string, c *models.Customer) (string, error)
	UpsertOrder(externalID string, o *models.Order) (string, error)
}

// NewPipeline builds the fetch/process pair for one entity kind. This is the
// dispatch table: one orchestrator, four record shapes, no inheritance.
func NewPipeline(kind models.EntityKind, source pageSource, target targetStore) (*Pipeline, error) {
	norm := NewNormalizer(target)

	fetch := func(ctx context.Context, page, limit int) ([]json.RawMessage, int, error) {
		records, total, err := source.FetchPage(ctx, kind, page, limit)
		if errors.Is(err, magento.ErrMalformed) {
			return nil, 0, ErrPageMalformed
		}
		return records, total, err
	}

	var process ProcessFunc
	switch kind {
	case models.KindProducts:
		process = func(ctx context.Context, raw json.RawMessage) (ItemResult, error) {
			var rec magento.RawProduct
			if err := json.Unmarshal(raw, &rec); err != nil {
				return ItemResult{}, fmt.Errorf("undecodable product record: %w", err)
			}
			entity, warnings := norm.Product(&rec)
			res := ItemResult{
				ExternalID: strconv.FormatInt(rec.EntityID, 10),
				Label:      rec.SKU,
				Warnings:   warnings,
			}
			if _, err := target.UpsertProduct(res.ExternalID, entity); err != nil {
				return res, err
			}
			return res, nil
		}
	case models.KindCategories:
		process = func(ctx context.Context, raw json.RawMessage) (ItemResult, error) {
			var rec magento.RawCategory
			if err := json.Unmarshal(raw, &rec); err != nil {
				return ItemResult{}, fmt.Errorf("undecodable category record: %w", err)
			}
			entity, warnings := norm.Category(&rec)
			res := ItemResult{
				ExternalID: strconv.FormatInt(rec.EntityID, 10),
				Label:      rec.Name,
				Warnings:   warnings,
			}
			if _, err := target.UpsertCategory(res.ExternalID, entity); err != nil {
				return res, err
			}
			return res, nil
		}
	case models.KindCustomers:
		process = func(ctx context.Context, raw json.RawMessage) (ItemResult, error) {
			var rec magento.RawCustomer
			if err := json.Unmarshal(raw, &rec); err != nil {
				return ItemResult{}, fmt.Errorf("undecodable customer record: %w", err)
			}
			entity, warnings := norm.Customer(&rec)
			res := ItemResult{
				ExternalID: strconv.FormatInt(rec.EntityID, 10),
				Label:      rec.Email,
				Warnings:   warnings,
			}
			if _, err := target.UpsertCustomer(res.ExternalID, entity); err != nil {
				return res, err
			}
			return res, nil
		}
	case models.KindOrders:
		process = func(ctx context.Context, raw json.RawMessage) (ItemResult, error) {
			var rec magento.RawOrder
			if err := json.Unmarshal(raw, &rec); err != nil {
				return ItemResult{}, fmt.Errorf("undecodable order record: %w", err)
			}
			entity, warnings := norm.Order(&rec)
			res := ItemResult{
				ExternalID: strconv.FormatInt(rec.EntityID, 10),
				Label:      rec.IncrementID,
				Warnings:   warnings,
			}
			if _, err := target.UpsertOrder(res.ExternalID, entity); err != nil {
				return res, err
			}
			return res, nil
		}
	default:
		return nil, fmt.Errorf("unknown entity type %q", kind)
	}

	return &Pipeline{Kind: kind, Fetch: fetch, Process: process}, nil
}
