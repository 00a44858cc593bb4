package catalog

import (
	"context"

	"github.com/mikepea/promptportal/pkg/portal/filter"
	"github.com/mikepea/promptportal/pkg/portal/models"
	"golang.org/x/sync/errgroup"
)

// GalleryView is everything the gallery page renders
type GalleryView struct {
	Categories []models.Category            `json:"categories"`
	Tools      []models.Tool                `json:"tools"`
	Filters    models.PromptFilters         `json:"filters"`
	Prompts    []models.PromptWithRelations `json:"prompts"`
}

// Gallery loads the reference lists, resolves the selection against them
// and lists the matching public prompts
func (c *Client) Gallery(ctx context.Context, sel filter.Selection) (*GalleryView, error) {
	var view GalleryView

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		categories, err := c.Categories(gctx)
		view.Categories = categories
		return err
	})
	g.Go(func() error {
		tools, err := c.Tools(gctx)
		view.Tools = tools
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Filters = c.composer.Compose(sel, view.Categories, view.Tools)

	prompts, err := c.Prompts(ctx, view.Filters)
	if err != nil {
		return nil, err
	}
	view.Prompts = prompts
	return &view, nil
}
