package middlewares

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allLocationReader struct {
	db *gorm.DB
}

func (r *allLocationReader) getAllLocations(ctx context.Context, ids []int) []*dataloader.Result[*models.AllLocation] {
	resultMap, err := models.MapAllLocation(ctx)
	if err != nil {
		return handleError[*models.AllLocation](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllLocation], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllLocation
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllLocation]{Data: result})
	}
	return loaderResults
}

func GetAllLocation(ctx context.Context, id int) (*models.AllLocation, error) {
	loaders := For(ctx)
	return loaders.allLocationLoader.Load(ctx, id)()
}

func GetAllLocations(ctx context.Context, ids []int) ([]*models.AllLocation, []error) {
	loaders := For(ctx)
	return loaders.allLocationLoader.LoadMany(ctx, ids)()
}
