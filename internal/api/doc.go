// Package api hosts the HTTP server, middleware, and REST handlers for the
// paper library. Notable routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/papers for URL submission; GET /v1/papers for search.
//   - /v1/papers/{id} for retrieval, deletion, notes, and the PDF redirect.
//   - /v1/enrichment/... to control the background metadata job.
package api
