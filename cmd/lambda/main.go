// Command lambda serves the inquiry router behind API Gateway.
//
// The application is built once per cold start and reused by every
// invocation the execution environment handles. The outbox does not run
// here; a Lambda instance is frozen between invocations.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/deppfellow/travelease-inquiry/internal/app"
	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/deppfellow/travelease-inquiry/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	a, err := app.New(context.Background(), cfg, &log, loggerService, app.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	adapter := echoadapter.New(a.Router)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
