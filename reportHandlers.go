package main

import (
	"net/http"

	"bitbucket.org/dentametrics/practice_backend/middlewares"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func registerReportRoutes(v1 *gin.RouterGroup) {
	group := v1.Group("/reports")
	group.GET("/production-summary", middlewares.RequireModuleAction("ProductionReport"), productionSummaryHandler())
	group.GET("/production-summary/export", middlewares.RequireModuleAction("ReportExport"), productionSummaryExportHandler())
	group.GET("/collections-summary", middlewares.RequireModuleAction("CollectionsReport"), collectionsSummaryHandler())
	group.GET("/goal-progress", middlewares.RequireModuleAction("GoalProgressReport"), goalProgressHandler())
	group.GET("/dashboard", middlewares.RequireModuleAction("DashboardReport"), dashboardHandler())
}

func queryTimePeriod(c *gin.Context) models.TimePeriod {
	return models.TimePeriod(c.Query("timePeriod"))
}

func productionSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.productionSummary")
		defer span.End()

		summary, err := reports.GetProductionSummary(ctx,
			c.Query("fromDate"), c.Query("toDate"),
			queryInt(c, "locationId"), queryInt(c, "providerId"),
			queryTimePeriod(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func productionSummaryExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.productionSummary.export")
		defer span.End()

		err := reports.ExportProductionSummary(ctx, c.Writer,
			c.Query("fromDate"), c.Query("toDate"),
			queryInt(c, "locationId"), queryInt(c, "providerId"),
			queryTimePeriod(c))
		if err != nil {
			// Headers go out only after the workbook is built, so an
			// unwritten response can still carry the error payload.
			if !c.Writer.Written() {
				respondError(c, err)
			}
			return
		}
	}
}

func collectionsSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.collectionsSummary")
		defer span.End()

		summary, err := reports.GetCollectionsSummary(ctx,
			c.Query("fromDate"), c.Query("toDate"),
			queryInt(c, "locationId"),
			queryTimePeriod(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func goalProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.goalProgress")
		defer span.End()

		progress, err := reports.GetGoalProgress(ctx,
			c.Query("asOfDate"),
			queryInt(c, "locationId"), queryInt(c, "providerId"),
			queryTimePeriod(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, progress)
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.dashboard")
		defer span.End()

		dashboard, err := reports.GetDashboard(ctx, c.Query("filterType"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}
