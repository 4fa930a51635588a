package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	catalogdomain "github.com/kitmed/catalogsync/internal/catalog/domain"
	"github.com/kitmed/catalogsync/internal/pipeline/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StrategyReference = "reference"
	StrategyName      = "name"
)

// DetectDuplicates proposes consolidation groups without touching anything.
// The oldest product of each group is canonical; the rest are candidates for
// removal.
func (e *Engine) DetectDuplicates(ctx context.Context, strategy string) (*domain.ConsolidationReport, error) {
	var key catalogdomain.GroupKey
	switch strategy {
	case StrategyReference, "":
		strategy, key = StrategyReference, catalogdomain.GroupByReference
	case StrategyName:
		key = catalogdomain.GroupByName
	default:
		return nil, fmt.Errorf("unknown consolidation strategy %q", strategy)
	}

	groups, err := e.store.GroupProducts(ctx, e.db, key, e.primaryLocale)
	if err != nil {
		return nil, fmt.Errorf("group products: %w", err)
	}

	report := &domain.ConsolidationReport{Strategy: strategy}
	for _, g := range groups {
		if len(g.Products) < 2 {
			continue
		}
		canonical := g.Products[0]
		dg := domain.DuplicateGroup{Key: g.Key, CanonicalID: canonical.ID}
		refs := map[string]bool{}
		for _, p := range g.Products {
			if p.ID != canonical.ID {
				dg.MemberIDs = append(dg.MemberIDs, p.ID)
			}
			for _, ref := range catalogdomain.SplitReferences(p.Reference) {
				refs[ref] = true
			}
		}
		for ref := range refs {
			dg.References = append(dg.References, ref)
		}
		sort.Strings(dg.References)
		report.Groups = append(report.Groups, dg)
	}
	return report, nil
}

// Consolidate executes a previously detected report: media the canonical
// product lacks moves over, then each duplicate's translations, media, and
// product row are deleted in that order. The canonical reference becomes the
// comma-joined list of every consolidated SKU.
func (e *Engine) Consolidate(ctx context.Context, report *domain.ConsolidationReport) (*domain.ConsolidationReport, error) {
	if report == nil {
		return nil, fmt.Errorf("nil consolidation report")
	}

	result := &domain.ConsolidationReport{
		Strategy: report.Strategy,
		Executed: true,
	}

	for _, group := range report.Groups {
		if err := e.consolidateGroup(ctx, group, result); err != nil {
			return result, err
		}
		result.Groups = append(result.Groups, group)
	}

	e.log.Info("consolidation executed",
		zap.Int("groups", len(result.Groups)),
		zap.Int("media_moved", result.MediaMoved),
		zap.Int("products_deleted", result.ProductsDeleted))
	return result, nil
}

func (e *Engine) consolidateGroup(ctx context.Context, group domain.DuplicateGroup, result *domain.ConsolidationReport) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		canonical, err := e.store.FindProductByID(ctx, tx, group.CanonicalID)
		if err != nil {
			return fmt.Errorf("load canonical %d: %w", group.CanonicalID, err)
		}
		if canonical == nil {
			// Already consolidated by an earlier run against a stale report.
			return nil
		}

		canonicalMedia, err := e.store.ListMedia(ctx, tx, canonical.ID)
		if err != nil {
			return fmt.Errorf("list canonical media: %w", err)
		}
		known := map[string]bool{}
		hasPrimary := map[string]bool{}
		nextOrder := map[string]int{}
		for _, a := range canonicalMedia {
			known[mediaKey(a)] = true
			if a.IsPrimary {
				hasPrimary[a.Type] = true
			}
			if a.SortOrder >= nextOrder[a.Type] {
				nextOrder[a.Type] = a.SortOrder + 1
			}
		}

		refs := map[string]bool{}
		for _, ref := range catalogdomain.SplitReferences(canonical.Reference) {
			refs[ref] = true
		}

		for _, memberID := range group.MemberIDs {
			member, err := e.store.FindProductByID(ctx, tx, memberID)
			if err != nil {
				return fmt.Errorf("load duplicate %d: %w", memberID, err)
			}
			if member == nil {
				continue
			}
			for _, ref := range catalogdomain.SplitReferences(member.Reference) {
				refs[ref] = true
			}

			memberMedia, err := e.store.ListMedia(ctx, tx, memberID)
			if err != nil {
				return fmt.Errorf("list duplicate media: %w", err)
			}
			for i := range memberMedia {
				asset := memberMedia[i]
				if known[mediaKey(asset)] {
					continue
				}
				asset.ProductID = canonical.ID
				asset.IsPrimary = !hasPrimary[asset.Type]
				asset.SortOrder = nextOrder[asset.Type]
				if err := e.store.UpdateMediaAsset(ctx, tx, &asset); err != nil {
					return fmt.Errorf("move media asset: %w", err)
				}
				known[mediaKey(asset)] = true
				hasPrimary[asset.Type] = true
				nextOrder[asset.Type]++
				result.MediaMoved++
			}

			if err := e.store.DeleteTranslations(ctx, tx, memberID); err != nil {
				return fmt.Errorf("delete duplicate translations: %w", err)
			}
			if err := e.store.DeleteMediaAssets(ctx, tx, memberID); err != nil {
				return fmt.Errorf("delete duplicate media: %w", err)
			}
			if err := e.store.DeleteProduct(ctx, tx, memberID); err != nil {
				return fmt.Errorf("delete duplicate product: %w", err)
			}
			result.ProductsDeleted++
		}

		joined := make([]string, 0, len(refs))
		for ref := range refs {
			joined = append(joined, ref)
		}
		sort.Strings(joined)
		if ref := strings.Join(joined, ", "); ref != "" && ref != canonical.Reference {
			canonical.Reference = ref
			if err := e.store.UpdateProduct(ctx, tx, canonical); err != nil {
				return fmt.Errorf("update canonical reference: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return &domain.PersistenceError{Op: "consolidate", Err: err}
	}
	return nil
}

// mediaKey identifies an asset for cross-product comparison: source URL when
// known, local path otherwise.
func mediaKey(a catalogdomain.MediaAsset) string {
	if a.SourceURL != nil && *a.SourceURL != "" {
		return "url:" + *a.SourceURL
	}
	return "path:" + a.LocalPath
}
