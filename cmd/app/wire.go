//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/jlin-dev/carbonlens/internal/bootstrap"
	"github.com/jlin-dev/carbonlens/internal/domain/analytics"
	"github.com/jlin-dev/carbonlens/internal/domain/recommend"
	"github.com/jlin-dev/carbonlens/internal/infra/carbonapi"
	"github.com/jlin-dev/carbonlens/internal/infra/config"
	"github.com/jlin-dev/carbonlens/internal/infra/llm/chatgpt"
	httpiface "github.com/jlin-dev/carbonlens/internal/interface/http"
	"github.com/jlin-dev/carbonlens/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAnalyticsConfig,
		provideCarbonAPIClient,
		provideActivityReader,
		provideRecommendConfig,
		provideChatGPTClient,
		provideRecommendStore,
		provideArchiver,
		provideProfileSource,
		analytics.NewService,
		recommend.NewService,
		wire.Bind(new(analytics.SummaryAPI), new(*carbonapi.Client)),
		wire.Bind(new(recommend.ChatClient), new(*chatgpt.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
