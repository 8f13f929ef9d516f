//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/helpline/faqmatch/internal/bootstrap"
	"github.com/helpline/faqmatch/internal/domain/matching"
	"github.com/helpline/faqmatch/internal/infra/config"
	httpiface "github.com/helpline/faqmatch/internal/interface/http"
	"github.com/helpline/faqmatch/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideMatchingConfig,
		providePgxPool,
		provideCorpusRepository,
		provideInboundRepository,
		provideEngine,
		provideResultCache,
		provideArchive,
		matching.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
