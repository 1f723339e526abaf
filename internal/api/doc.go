// Package api provides the JSON REST API server for nulland.
//
// # Architecture
//
// The API server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Bearer authentication is enforced per route: the /notes handlers require a
// verified identity, while /, /health and /token stay anonymous.
//
// # Endpoints
//
// Status probes (no auth):
//   - GET / — returns {"status":"HellWorld"}
//   - GET /health — returns {"status":"ok"}
//
// Notes (ownership-enforced):
//   - POST   /notes      — create a note owned by the caller
//   - GET    /notes      — list the caller's notes
//   - GET    /notes/{id} — get one note by id
//   - PATCH  /notes/{id} — partially update one note
//   - DELETE /notes/{id} — delete one note
//
// OAuth2 support:
//   - POST /token — exchange an authorization code for an access token
//     with the external identity provider
//
// # Note Ownership
//
// Every note access filters by both note id and the verified caller
// identity. A note belonging to another user yields the same 404 as a note
// that does not exist, so resource ids cannot be enumerated across users.
//
// # Error Handling
//
// Every error response is a small JSON object with a "detail" string:
//
//	{"detail": "Note not found"}
//
// The status code is authoritative: 401 for credential problems (with a
// WWW-Authenticate: Bearer challenge), 503 when the signing key source is
// unreachable, 422 for validation failures, 404 for absent or foreign
// notes, 500 for everything unexpected. Internal detail is logged
// server-side and never echoed to the client.
package api
