package middlewares

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type allSpecialtyReader struct {
	db *gorm.DB
}

func (r *allSpecialtyReader) getAllSpecialties(ctx context.Context, ids []int) []*dataloader.Result[*models.AllSpecialty] {
	resultMap, err := models.MapAllSpecialty(ctx)
	if err != nil {
		return handleError[*models.AllSpecialty](len(ids), err)
	}
	var loaderResults = make([]*dataloader.Result[*models.AllSpecialty], 0, len(ids))
	for _, id := range ids {
		result, ok := resultMap[id]
		if !ok {
			var v models.AllSpecialty
			v.ID = id
			result = &v
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.AllSpecialty]{Data: result})
	}
	return loaderResults
}

func GetAllSpecialty(ctx context.Context, id int) (*models.AllSpecialty, error) {
	loaders := For(ctx)
	return loaders.allSpecialtyLoader.Load(ctx, id)()
}

func GetAllSpecialties(ctx context.Context, ids []int) ([]*models.AllSpecialty, []error) {
	loaders := For(ctx)
	return loaders.allSpecialtyLoader.LoadMany(ctx, ids)()
}
