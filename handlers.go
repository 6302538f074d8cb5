package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/middlewares"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// bindJSON binds the request body and writes the 400 response on failure.
// Binding-tag violations come back as a field map, anything else as a
// generic invalid-request error.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondError maps the error kind crossing the model boundary to a status.
func respondError(c *gin.Context, err error) {
	switch utils.KindOf(err) {
	case utils.ErrKindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.ErrKindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case utils.ErrKindAccessDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func queryString(c *gin.Context, name string) *string {
	if v := strings.TrimSpace(c.Query(name)); v != "" {
		return &v
	}
	return nil
}

func queryInt(c *gin.Context, name string) *int {
	if v := strings.TrimSpace(c.Query(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
	}
	return nil
}

type toggleActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// ----- session -----

type signinRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func signinHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signinRequest
		if !bindJSON(c, &req) {
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func signoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok || userId == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		user, err := models.GetUser(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if _, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ----- route registration -----

func registerClinicRoutes(r *gin.Engine) {
	v1 := r.Group("/v1", middlewares.AuthMiddleware(), middlewares.Authenticate())

	clinic := v1.Group("/clinic", middlewares.RequireModuleAction("Clinic"))
	clinic.GET("", getClinicHandler())
	clinic.PUT("", updateClinicHandler())

	locations := v1.Group("/locations", middlewares.RequireModuleAction("Location"))
	locations.POST("", createLocationHandler())
	locations.GET("", listLocationsHandler())
	locations.GET("/:id", getLocationHandler())
	locations.PUT("/:id", updateLocationHandler())
	locations.DELETE("/:id", deleteLocationHandler())
	locations.PUT("/:id/toggle-active", toggleLocationHandler())

	providers := v1.Group("/providers", middlewares.RequireModuleAction("Provider"))
	providers.POST("", createProviderHandler())
	providers.GET("", listProvidersHandler())
	providers.GET("/:id", getProviderHandler())
	providers.PUT("/:id", updateProviderHandler())
	providers.DELETE("/:id", deleteProviderHandler())
	providers.PUT("/:id/toggle-active", toggleProviderHandler())

	// Specialties are platform reference data; clinics only read them.
	v1.GET("/specialties", middlewares.RequireModuleAction("Specialty"), listSpecialtiesHandler())

	metricDefinitions := v1.Group("/metric-definitions", middlewares.RequireModuleAction("MetricDefinition"))
	metricDefinitions.POST("", createMetricDefinitionHandler())
	metricDefinitions.GET("", listMetricDefinitionsHandler())
	metricDefinitions.GET("/:id", getMetricDefinitionHandler())
	metricDefinitions.PUT("/:id", updateMetricDefinitionHandler())
	metricDefinitions.DELETE("/:id", deleteMetricDefinitionHandler())
	metricDefinitions.PUT("/:id/toggle-active", toggleMetricDefinitionHandler())

	dataSources := v1.Group("/data-sources", middlewares.RequireModuleAction("DataSource"))
	dataSources.POST("", createDataSourceHandler())
	dataSources.GET("", listDataSourcesHandler())
	dataSources.GET("/:id", getDataSourceHandler())
	dataSources.PUT("/:id", updateDataSourceHandler())
	dataSources.DELETE("/:id", deleteDataSourceHandler())
	dataSources.PUT("/:id/toggle-active", toggleDataSourceHandler())

	goalTemplates := v1.Group("/goal-templates", middlewares.RequireModuleAction("GoalTemplate"))
	goalTemplates.POST("", createGoalTemplateHandler())
	goalTemplates.GET("", listGoalTemplatesHandler())
	goalTemplates.GET("/:id", getGoalTemplateHandler())
	goalTemplates.PUT("/:id", updateGoalTemplateHandler())
	goalTemplates.DELETE("/:id", deleteGoalTemplateHandler())
	goalTemplates.PUT("/:id/toggle-active", toggleGoalTemplateHandler())

	goals := v1.Group("/goals", middlewares.RequireModuleAction("Goal"))
	goals.POST("", createGoalHandler())
	goals.GET("", listGoalsHandler())
	goals.GET("/:id", getGoalHandler())
	goals.DELETE("/:id", deleteGoalHandler())

	financials := v1.Group("/financials")
	financials.GET("", middlewares.RequireModuleAction("LocationFinancial"), listFinancialsHandler())
	financials.POST("/import", middlewares.RequireModuleAction("FinancialImport"), importFinancialsHandler())
	financials.POST("/import-xlsx", middlewares.RequireModuleAction("FinancialImport"), importFinancialsXlsxHandler())

	users := v1.Group("/users", middlewares.RequireModuleAction("User"))
	users.POST("", createUserHandler())
	users.GET("", listUsersHandler())
	users.GET("/:id", getUserHandler())
	users.PUT("/:id", updateUserHandler())
	users.DELETE("/:id", deleteUserHandler())

	roles := v1.Group("/roles", middlewares.RequireModuleAction("Role"))
	roles.POST("", createRoleHandler())
	roles.GET("", listRolesHandler())
	roles.GET("/:id", getRoleHandler())
	roles.PUT("/:id", updateRoleHandler())
	roles.DELETE("/:id", deleteRoleHandler())

	v1.GET("/modules", middlewares.RequireModuleAction("Module"), listModulesHandler())
	v1.GET("/histories", middlewares.RequireModuleAction("History"), listHistoriesHandler())

	// Dropdown shapes for pickers. Read-only; any signed-in clinic user
	// may resolve names, so no module gate.
	all := v1.Group("/all")
	all.GET("/locations", allLocationsHandler())
	all.GET("/providers", allProvidersHandler())
	all.GET("/specialties", allSpecialtiesHandler())
	all.GET("/metric-definitions", allMetricDefinitionsHandler())
	all.GET("/goal-templates", allGoalTemplatesHandler())
	all.GET("/data-sources", allDataSourcesHandler())
	all.GET("/roles", allRolesHandler())

	sync := v1.Group("/sync", middlewares.RequireModuleAction("Sync"))
	sync.GET("/status", syncStatusHandler())
	sync.GET("/bootstrap", syncBootstrapHandler())
	sync.POST("/reprocess", syncReprocessHandler())

	registerReportRoutes(v1)
	registerUploadRoutes(v1)
}

func registerAdminRoutes(r *gin.Engine, logger *logrus.Logger) {
	admin := r.Group("/admin", middlewares.AuthMiddleware(), middlewares.Authenticate(), middlewares.RequireAdmin())

	admin.POST("/clinics", createClinicHandler())
	admin.GET("/clinics", listClinicsHandler())
	admin.GET("/clinics/:id", getClinicByIdHandler())
	admin.PUT("/clinics/:id/toggle-active", toggleClinicHandler())

	admin.POST("/specialties", createSpecialtyHandler())
	admin.GET("/specialties", listSpecialtiesHandler())
	admin.GET("/specialties/:id", getSpecialtyHandler())
	admin.PUT("/specialties/:id", updateSpecialtyHandler())
	admin.DELETE("/specialties/:id", deleteSpecialtyHandler())
	admin.PUT("/specialties/:id/toggle-active", toggleSpecialtyHandler())

	admin.GET("/all/clinics", allClinicsHandler())

	admin.POST("/outbox/revert-dead", outboxRevertDeadHandler())
	admin.POST("/outbox/process", outboxProcessHandler(logger))
	admin.POST("/clear-redis", clearRedisHandler())
}

// ----- clinic (own) -----

func getClinicHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clinic, err := models.GetClinic(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinic)
	}
}

func updateClinicHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewClinic
		if !bindJSON(c, &input) {
			return
		}
		clinic, err := models.UpdateClinic(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinic)
	}
}

// ----- locations -----

func createLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLocation
		if !bindJSON(c, &input) {
			return
		}
		location, err := models.CreateLocation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, location)
	}
}

func listLocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locations, err := models.GetLocations(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

func getLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		location, err := models.GetLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func updateLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewLocation
		if !bindJSON(c, &input) {
			return
		}
		location, err := models.UpdateLocation(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func deleteLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		location, err := models.DeleteLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func toggleLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		location, err := models.ToggleActiveLocation(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

// ----- providers -----

func createProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProvider
		if !bindJSON(c, &input) {
			return
		}
		provider, err := models.CreateProvider(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, provider)
	}
}

func listProvidersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		providers, err := models.GetProviders(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		views, err := buildProviderViews(c.Request.Context(), providers)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func getProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		provider, err := models.GetProvider(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		view, err := buildProviderView(c.Request.Context(), provider)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func updateProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewProvider
		if !bindJSON(c, &input) {
			return
		}
		provider, err := models.UpdateProvider(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, provider)
	}
}

func deleteProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		provider, err := models.DeleteProvider(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, provider)
	}
}

func toggleProviderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		provider, err := models.ToggleActiveProvider(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, provider)
	}
}

// ----- metric definitions -----

func createMetricDefinitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewMetricDefinition
		if !bindJSON(c, &input) {
			return
		}
		metricDefinition, err := models.CreateMetricDefinition(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, metricDefinition)
	}
}

func listMetricDefinitionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		metricDefinitions, err := models.GetMetricDefinitions(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metricDefinitions)
	}
}

func getMetricDefinitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		metricDefinition, err := models.GetMetricDefinition(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metricDefinition)
	}
}

func updateMetricDefinitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewMetricDefinition
		if !bindJSON(c, &input) {
			return
		}
		metricDefinition, err := models.UpdateMetricDefinition(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metricDefinition)
	}
}

func deleteMetricDefinitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		metricDefinition, err := models.DeleteMetricDefinition(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metricDefinition)
	}
}

func toggleMetricDefinitionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		metricDefinition, err := models.ToggleActiveMetricDefinition(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metricDefinition)
	}
}

// ----- data sources -----

func createDataSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDataSource
		if !bindJSON(c, &input) {
			return
		}
		dataSource, err := models.CreateDataSource(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dataSource)
	}
}

func listDataSourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dataSources, err := models.GetDataSources(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dataSources)
	}
}

func getDataSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		dataSource, err := models.GetDataSource(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dataSource)
	}
}

func updateDataSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewDataSource
		if !bindJSON(c, &input) {
			return
		}
		dataSource, err := models.UpdateDataSource(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dataSource)
	}
}

func deleteDataSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		dataSource, err := models.DeleteDataSource(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dataSource)
	}
}

func toggleDataSourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		dataSource, err := models.ToggleActiveDataSource(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dataSource)
	}
}

// ----- goal templates -----

func createGoalTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewGoalTemplate
		if !bindJSON(c, &input) {
			return
		}
		goalTemplate, err := models.CreateGoalTemplate(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, goalTemplate)
	}
}

func listGoalTemplatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		goalTemplates, err := models.GetGoalTemplates(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goalTemplates)
	}
}

func getGoalTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		goalTemplate, err := models.GetGoalTemplate(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goalTemplate)
	}
}

func updateGoalTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewGoalTemplate
		if !bindJSON(c, &input) {
			return
		}
		goalTemplate, err := models.UpdateGoalTemplate(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goalTemplate)
	}
}

func deleteGoalTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		goalTemplate, err := models.DeleteGoalTemplate(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goalTemplate)
	}
}

func toggleGoalTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		goalTemplate, err := models.ToggleActiveGoalTemplate(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goalTemplate)
	}
}

// ----- goals -----

func createGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewGoal
		if !bindJSON(c, &input) {
			return
		}
		result, err := models.CreateGoal(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func listGoalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var timePeriod *models.TimePeriod
		if v := queryString(c, "timePeriod"); v != nil {
			p := models.TimePeriod(*v)
			timePeriod = &p
		}
		goals, err := models.GetGoals(c.Request.Context(),
			queryInt(c, "metricDefinitionId"),
			queryInt(c, "locationId"),
			queryInt(c, "providerId"),
			timePeriod)
		if err != nil {
			respondError(c, err)
			return
		}
		views, err := buildGoalViews(c.Request.Context(), goals)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func getGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		goal, err := models.GetGoal(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		view, err := buildGoalView(c.Request.Context(), goal)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func deleteGoalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		goal, err := models.DeleteGoal(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

// ----- financials -----

func listFinancialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.LocationFinancialFilter{
			LocationId: queryInt(c, "locationId"),
			FromDate:   queryString(c, "fromDate"),
			ToDate:     queryString(c, "toDate"),
			Limit:      queryInt(c, "limit"),
			Offset:     queryInt(c, "offset"),
		}
		records, err := models.GetLocationFinancials(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func importFinancialsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFinancialImport
		if !bindJSON(c, &input) {
			return
		}
		// An explicit clinic id must match the session clinic.
		clinicId, _ := utils.GetClinicIdFromContext(c.Request.Context())
		if input.ClinicId != "" && input.ClinicId != clinicId {
			c.JSON(http.StatusForbidden, gin.H{"error": "clinic mismatch"})
			return
		}
		input.ClinicId = clinicId

		summary, err := models.ImportFinancialRecords(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		// Partial failures stay 200; the summary carries per-record outcomes.
		c.JSON(http.StatusOK, summary)
	}
}

func importFinancialsXlsxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open file"})
			return
		}
		defer file.Close()

		var dataSourceId *int
		if v := strings.TrimSpace(c.PostForm("dataSourceId")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dataSourceId"})
				return
			}
			dataSourceId = &n
		}
		var upsert *bool
		if v := strings.TrimSpace(c.PostForm("upsert")); v != "" {
			b := strings.EqualFold(v, "true")
			upsert = &b
		}
		dryRun := strings.EqualFold(strings.TrimSpace(c.PostForm("dryRun")), "true")

		summary, err := models.ImportFinancialsFromXlsx(c.Request.Context(), fileHeader.Filename, file, dataSourceId, upsert, dryRun)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// ----- users -----

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		// Clinic users never mint platform admins.
		if input.Role == models.UserRoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		clinicId, _ := utils.GetClinicIdFromContext(c.Request.Context())
		input.ClinicId = clinicId

		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func getUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		user, err := models.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.User
		if !bindJSON(c, &input) {
			return
		}
		input.ID = id
		user, err := input.UpdateUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func deleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var user models.User
		result, err := user.DeleteUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ----- roles -----

func createRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRole
		if !bindJSON(c, &input) {
			return
		}
		role, err := models.CreateRole(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, role)
	}
}

func listRolesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, err := models.GetRoles(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		for _, role := range roles {
			role.RoleModules, err = middlewares.GetRoleModules(c.Request.Context(), role.ID)
			if err != nil {
				respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, roles)
	}
}

func getRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		role, err := models.GetRole(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		role.RoleModules, err = middlewares.GetRoleModules(c.Request.Context(), role.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, role)
	}
}

func updateRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewRole
		if !bindJSON(c, &input) {
			return
		}
		role, err := models.UpdateRole(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, role)
	}
}

func deleteRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		role, err := models.DeleteRole(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, role)
	}
}

// ----- modules & histories -----

func listModulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		modules, err := models.GetModules(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, modules)
	}
}

func listHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		histories, err := models.PaginateHistory(c.Request.Context(),
			queryInt(c, "limit"),
			queryString(c, "after"),
			queryString(c, "referenceType"),
			queryInt(c, "referenceId"),
			queryInt(c, "userId"),
			queryString(c, "actionType"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, histories)
	}
}

// ----- all (dropdown shapes) -----

func allLocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locations, err := models.ListAllLocation(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

func allProvidersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		providers, err := models.ListAllProvider(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, providers)
	}
}

func allSpecialtiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		specialties, err := models.ListAllSpecialty(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, specialties)
	}
}

func allMetricDefinitionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		metricDefinitions, err := models.ListAllMetricDefinition(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, metricDefinitions)
	}
}

func allGoalTemplatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		goalTemplates, err := models.ListAllGoalTemplate(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, goalTemplates)
	}
}

func allDataSourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		dataSources, err := models.ListAllDataSource(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dataSources)
	}
}

func allRolesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, err := models.ListAllRole(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, roles)
	}
}

func allClinicsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clinics, err := models.ListAllClinic(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinics)
	}
}

// ----- sync -----

func syncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := models.GetSyncMessages(c.Request.Context(), queryString(c, "status"), queryInt(c, "limit"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

// syncBootstrapHandler hands the connector the clinic's reference data in
// one payload so sheet columns can be mapped to entity ids up front.
func syncBootstrapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		clinicId, ok := utils.GetClinicIdFromContext(ctx)
		if !ok || clinicId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		payload, err := models.GetSyncBootstrap(ctx, clinicId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
	}
}

type syncReprocessRequest struct {
	ReferenceType string `json:"referenceType" binding:"required"`
	ReferenceId   int    `json:"referenceId" binding:"required"`
}

func syncReprocessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncReprocessRequest
		if !bindJSON(c, &req) {
			return
		}
		refType := models.SyncReferenceType(strings.ToUpper(strings.TrimSpace(req.ReferenceType)))
		switch refType {
		case models.SyncReferenceTypeLocationFinancial,
			models.SyncReferenceTypeGoal,
			models.SyncReferenceTypeImportBatch,
			models.SyncReferenceTypeDataSource:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referenceType"})
			return
		}
		status, err := models.ReprocessOutbox(c.Request.Context(), refType, req.ReferenceId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// ----- admin: clinics -----

func createClinicHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewClinic
		if !bindJSON(c, &input) {
			return
		}
		clinic, err := models.CreateClinic(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, clinic)
	}
}

func listClinicsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clinics, err := models.GetClinics(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinics)
	}
}

func getClinicByIdHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clinic, err := models.GetClinicById(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinic)
	}
}

func toggleClinicHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		clinic, err := models.ToggleActiveClinic(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, clinic)
	}
}

// ----- admin: specialties -----

func createSpecialtyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSpecialty
		if !bindJSON(c, &input) {
			return
		}
		specialty, err := models.CreateSpecialty(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, specialty)
	}
}

func listSpecialtiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		specialties, err := models.GetSpecialties(c.Request.Context(), queryString(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, specialties)
	}
}

func getSpecialtyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		specialty, err := models.GetSpecialty(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, specialty)
	}
}

func updateSpecialtyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewSpecialty
		if !bindJSON(c, &input) {
			return
		}
		specialty, err := models.UpdateSpecialty(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, specialty)
	}
}

func deleteSpecialtyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		specialty, err := models.DeleteSpecialty(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, specialty)
	}
}

func toggleSpecialtyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req toggleActiveRequest
		if !bindJSON(c, &req) {
			return
		}
		specialty, err := models.ToggleActiveSpecialty(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, specialty)
	}
}

// ----- admin: outbox & cache -----

type outboxRevertDeadRequest struct {
	ClinicId *string `json:"clinicId"`
}

func outboxRevertDeadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxRevertDeadRequest
		if c.Request.ContentLength > 0 {
			if !bindJSON(c, &req) {
				return
			}
		}
		reverted, err := models.RevertDeadOutboxMessages(c.Request.Context(), req.ClinicId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reverted": reverted})
	}
}

type outboxProcessRequest struct {
	ClinicId string `json:"clinicId" binding:"required"`
	RecordId int    `json:"recordId" binding:"required"`
}

// outboxProcessHandler runs one outbox row through the sync worker path
// on demand, ahead of its backoff schedule.
func outboxProcessHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxProcessRequest
		if !bindJSON(c, &req) {
			return
		}

		db := config.GetDB()
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}
		var rec models.SyncMessageRecord
		if err := db.WithContext(c.Request.Context()).
			Where("id = ? AND clinic_id = ?", req.RecordId, req.ClinicId).
			First(&rec).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		if rec.IsProcessed {
			c.JSON(http.StatusOK, gin.H{"record_id": rec.ID, "already_processed": true})
			return
		}

		msg := models.ConvertToPubSubMessage(rec)
		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyClinicId, rec.ClinicId)
		ctx = context.WithValue(ctx, utils.ContextKeyUserId, 0)
		ctx = context.WithValue(ctx, utils.ContextKeyUserName, "System")
		ctx = utils.SetCorrelationIdInContext(ctx, rec.CorrelationId)
		if err := ProcessMessage(ctx, logger, msg); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"record_id":    rec.ID,
			"clinic_id":    rec.ClinicId,
			"processed_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}

func clearRedisHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := models.ClearRedis(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}
