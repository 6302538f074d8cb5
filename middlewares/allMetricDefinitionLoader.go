package middlewares

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allMetricDefinitionReader struct {
	db *gorm.DB
}

func (r *allMetricDefinitionReader) getAllMetricDefinitions(ctx context.Context, ids []int) []*dataloader.Result[*models.AllMetricDefinition] {
	resultMap, err := models.MapAllMetricDefinition(ctx)
	if err != nil {
		return handleError[*models.AllMetricDefinition](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllMetricDefinition], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllMetricDefinition
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllMetricDefinition]{Data: result})
	}
	return loaderResults
}

func GetAllMetricDefinition(ctx context.Context, id int) (*models.AllMetricDefinition, error) {
	loaders := For(ctx)
	return loaders.allMetricDefinitionLoader.Load(ctx, id)()
}

func GetAllMetricDefinitions(ctx context.Context, ids []int) ([]*models.AllMetricDefinition, []error) {
	loaders := For(ctx)
	return loaders.allMetricDefinitionLoader.LoadMany(ctx, ids)()
}
