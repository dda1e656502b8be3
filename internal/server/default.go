package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/tenancy/modules/core/presentation/controllers"
	"github.com/iota-uz/tenancy/pkg/application"
	"github.com/iota-uz/tenancy/pkg/configuration"
	"github.com/iota-uz/tenancy/pkg/constants"
	"github.com/iota-uz/tenancy/pkg/middleware"
	"github.com/iota-uz/tenancy/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the standard middleware stack and HTTP server. The
// tenant resolver is not part of this stack: it guards the lazy module
// mounts only, so health and admin endpoints stay reachable without a
// tenant host.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	cfg := options.Configuration

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(middleware.LoggerOptions{
			Logger:          options.Logger,
			RequestIDHeader: cfg.RequestIDHeader,
			RealIPHeader:    cfg.RealIPHeader,
		}),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.Cors(cfg.AllowedOrigins...),
		middleware.RequestParams(cfg.RealIPHeader),
		middleware.SuperadminAuth(cfg.SuperadminToken),
	}

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(
		app,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	), nil
}
