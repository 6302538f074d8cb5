package main

import (
	"context"

	"bitbucket.org/dentametrics/practice_backend/middlewares"
	"bitbucket.org/dentametrics/practice_backend/models"
)

// Read endpoints decorate rows with the compact shapes of their related
// entities, resolved through the request's dataloaders so a list costs a
// few batched map fetches instead of one query per row.

type goalView struct {
	*models.Goal
	MetricDefinition *models.AllMetricDefinition `json:"metric_definition,omitempty"`
	Location         *models.AllLocation         `json:"location,omitempty"`
	Provider         *models.AllProvider         `json:"provider,omitempty"`
	Template         *models.AllGoalTemplate     `json:"template,omitempty"`
}

func buildGoalView(ctx context.Context, goal *models.Goal) (*goalView, error) {
	view := &goalView{Goal: goal}
	metricDefinition, err := middlewares.GetAllMetricDefinition(ctx, goal.MetricDefinitionId)
	if err != nil {
		return nil, err
	}
	view.MetricDefinition = metricDefinition
	if err := attachGoalScope(ctx, view, goal); err != nil {
		return nil, err
	}
	return view, nil
}

func buildGoalViews(ctx context.Context, goals []*models.Goal) ([]*goalView, error) {
	metricIds := make([]int, len(goals))
	for i, goal := range goals {
		metricIds[i] = goal.MetricDefinitionId
	}
	metricDefinitions, errs := middlewares.GetAllMetricDefinitions(ctx, metricIds)
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	views := make([]*goalView, 0, len(goals))
	for i, goal := range goals {
		view := &goalView{Goal: goal, MetricDefinition: metricDefinitions[i]}
		if err := attachGoalScope(ctx, view, goal); err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// attachGoalScope resolves the goal's optional location/provider/template ids.
func attachGoalScope(ctx context.Context, view *goalView, goal *models.Goal) error {
	if goal.LocationId != nil {
		location, err := middlewares.GetAllLocation(ctx, *goal.LocationId)
		if err != nil {
			return err
		}
		view.Location = location
	}
	if goal.ProviderId != nil {
		provider, err := middlewares.GetAllProvider(ctx, *goal.ProviderId)
		if err != nil {
			return err
		}
		view.Provider = provider
	}
	if goal.TemplateId != nil {
		template, err := middlewares.GetAllGoalTemplate(ctx, *goal.TemplateId)
		if err != nil {
			return err
		}
		view.Template = template
	}
	return nil
}

type providerView struct {
	*models.Provider
	Specialty *models.AllSpecialty `json:"specialty,omitempty"`
	Location  *models.AllLocation  `json:"location,omitempty"`
}

func buildProviderView(ctx context.Context, provider *models.Provider) (*providerView, error) {
	view := &providerView{Provider: provider}
	if provider.SpecialtyId > 0 {
		specialty, err := middlewares.GetAllSpecialty(ctx, provider.SpecialtyId)
		if err != nil {
			return nil, err
		}
		view.Specialty = specialty
	}
	if provider.LocationId != nil {
		location, err := middlewares.GetAllLocation(ctx, *provider.LocationId)
		if err != nil {
			return nil, err
		}
		view.Location = location
	}
	return view, nil
}

func buildProviderViews(ctx context.Context, providers []*models.Provider) ([]*providerView, error) {
	views := make([]*providerView, 0, len(providers))
	for _, provider := range providers {
		view, err := buildProviderView(ctx, provider)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
