package item

import (
	"go.uber.org/fx"

	categorydomain "github.com/smallbiznis/pricewise/internal/category/domain"
	"github.com/smallbiznis/pricewise/internal/item/domain"
	"github.com/smallbiznis/pricewise/internal/item/repository"
	"github.com/smallbiznis/pricewise/internal/item/service"
)

var Module = fx.Module("item.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideReferenceClearer),
	fx.Provide(service.New),
)

// provideReferenceClearer lets category destroy clear item references
// without the category packages importing items.
func provideReferenceClearer(repo domain.Repository) categorydomain.ReferenceClearer {
	return repo
}
