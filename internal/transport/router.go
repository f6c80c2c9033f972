package transport

import "net/http"

// NewRouter mounts the order API. The /api/admin/orders routes mirror the
// public ones for the admin panel.
func NewRouter(orders *OrderHandler, stats *DashboardHandler, db Pinger) *http.ServeMux {
	mux := http.NewServeMux()

	for _, prefix := range []string{"/api/orders", "/api/admin/orders"} {
		mux.HandleFunc("POST "+prefix, orders.Create)
		mux.HandleFunc("GET "+prefix, orders.List)
		mux.HandleFunc("GET "+prefix+"/{id}", orders.Get)
		mux.HandleFunc("PUT "+prefix+"/{id}/status", orders.UpdateStatus)
		mux.HandleFunc("DELETE "+prefix+"/{id}", orders.Delete)
	}
	mux.HandleFunc("GET /api/userorders/orders", orders.ListByUser)
	mux.HandleFunc("GET /admin/dashboard/stats", stats.Stats)
	mux.HandleFunc("GET /health", Health(db))

	return mux
}
