package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "conecta/docs"
)

// RegisterSwaggerRoutes serves the OpenAPI document at /swagger/doc.json and
// the UI around it.
func RegisterSwaggerRoutes(r chi.Router) {
	r.Get("/swagger", redirectToSwaggerIndex)
	r.Get("/swagger/", redirectToSwaggerIndex)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
		// Keeps the pasted bearer token across reloads.
		httpSwagger.PersistAuthorization(true),
	))
}

func redirectToSwaggerIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/swagger/index.html", http.StatusFound)
}
