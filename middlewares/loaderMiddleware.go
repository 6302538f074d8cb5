package middlewares

import (
	"context"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	RoleModuleLoader *dataloader.Loader[int, []*models.RoleModule]

	allSpecialtyLoader        *dataloader.Loader[int, *models.AllSpecialty]
	allLocationLoader         *dataloader.Loader[int, *models.AllLocation]
	allProviderLoader         *dataloader.Loader[int, *models.AllProvider]
	allMetricDefinitionLoader *dataloader.Loader[int, *models.AllMetricDefinition]
	allGoalTemplateLoader     *dataloader.Loader[int, *models.AllGoalTemplate]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	// define the data loader
	roleModuleReader := &RoleModuleReader{db: conn}

	allSpecialtyReader := &allSpecialtyReader{db: conn}
	allLocationReader := &allLocationReader{db: conn}
	allProviderReader := &allProviderReader{db: conn}
	allMetricDefinitionReader := &allMetricDefinitionReader{db: conn}
	allGoalTemplateReader := &allGoalTemplateReader{db: conn}

	return &Loaders{
		RoleModuleLoader: dataloader.NewBatchedLoader(roleModuleReader.getRoleModules, dataloader.WithWait[int, []*models.RoleModule](time.Millisecond)),

		allSpecialtyLoader:        dataloader.NewBatchedLoader(allSpecialtyReader.getAllSpecialties, dataloader.WithWait[int, *models.AllSpecialty](time.Millisecond)),
		allLocationLoader:         dataloader.NewBatchedLoader(allLocationReader.getAllLocations, dataloader.WithWait[int, *models.AllLocation](time.Millisecond)),
		allProviderLoader:         dataloader.NewBatchedLoader(allProviderReader.getAllProviders, dataloader.WithWait[int, *models.AllProvider](time.Millisecond)),
		allMetricDefinitionLoader: dataloader.NewBatchedLoader(allMetricDefinitionReader.getAllMetricDefinitions, dataloader.WithWait[int, *models.AllMetricDefinition](time.Millisecond)),
		allGoalTemplateLoader:     dataloader.NewBatchedLoader(allGoalTemplateReader.getAllGoalTemplates, dataloader.WithWait[int, *models.AllGoalTemplate](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// T must be struct
// each id has many related results
func generateLoaderArrayResults[T models.RelatedData](results []T, referenceIds []int) (loaderResults []*dataloader.Result[[]*T]) {
	resultMap := make(map[int][]*T)
	for _, result := range results {
		// creating a new variable every turn, to avoid pointing to the adddress of result
		copy := result
		resultMap[result.GetReferenceId()] = append(resultMap[result.GetReferenceId()], &copy)
	}
	for _, id := range referenceIds {
		resultArray := resultMap[id]
		loaderResults = append(loaderResults, &dataloader.Result[[]*T]{Data: resultArray})
	}
	return loaderResults
}
