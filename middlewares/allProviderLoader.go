package middlewares

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allProviderReader struct {
	db *gorm.DB
}

func (r *allProviderReader) getAllProviders(ctx context.Context, ids []int) []*dataloader.Result[*models.AllProvider] {
	resultMap, err := models.MapAllProvider(ctx)
	if err != nil {
		return handleError[*models.AllProvider](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllProvider], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllProvider
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllProvider]{Data: result})
	}
	return loaderResults
}

func GetAllProvider(ctx context.Context, id int) (*models.AllProvider, error) {
	loaders := For(ctx)
	return loaders.allProviderLoader.Load(ctx, id)()
}

func GetAllProviders(ctx context.Context, ids []int) ([]*models.AllProvider, []error) {
	loaders := For(ctx)
	return loaders.allProviderLoader.LoadMany(ctx, ids)()
}
