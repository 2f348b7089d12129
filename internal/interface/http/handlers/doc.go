// Package handlers contains HTTP building blocks shared by the API server:
// health checks, identity resolution, webhook status mapping and reusable
// middleware.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("postgres", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("redis", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//
// # Identity
//
// Authenticator verifies HS256 bearer tokens and stores the caller in the
// request context:
//
//	auth := handlers.NewAuthenticator(secret)
//	h := auth.Middleware(mux)
//
//	identity := handlers.IdentityFromContext(r.Context())
//
// # Middleware
//
//	handler := handlers.ChainHandler(
//	    mux,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	)
package handlers
