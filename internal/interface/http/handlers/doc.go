// Package handlers contains the reusable pieces of the HTTP surface: the
// composite health checker and middleware shared by the API routes.
//
//	checker := handlers.NewCompositeHealthChecker("v1")
//	checker.AddCheck("database", handlers.NewPingCheck(conn))
//	checker.AddCheck("engine", handlers.NewReadyCheck(eng))
//
//	admin := handlers.NewAPIKeyAuth("X-API-Key", keys)
//	mux.Handle("POST /admin/...", admin.Middleware(h))
package handlers
