package middlewares

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allGoalTemplateReader struct {
	db *gorm.DB
}

func (r *allGoalTemplateReader) getAllGoalTemplates(ctx context.Context, ids []int) []*dataloader.Result[*models.AllGoalTemplate] {
	resultMap, err := models.MapAllGoalTemplate(ctx)
	if err != nil {
		return handleError[*models.AllGoalTemplate](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllGoalTemplate], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllGoalTemplate
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllGoalTemplate]{Data: result})
	}
	return loaderResults
}

func GetAllGoalTemplate(ctx context.Context, id int) (*models.AllGoalTemplate, error) {
	loaders := For(ctx)
	return loaders.allGoalTemplateLoader.Load(ctx, id)()
}

func GetAllGoalTemplates(ctx context.Context, ids []int) ([]*models.AllGoalTemplate, []error) {
	loaders := For(ctx)
	return loaders.allGoalTemplateLoader.LoadMany(ctx, ids)()
}
