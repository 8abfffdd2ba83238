// Package http provides HTTP handlers and middleware for the event planner API.
//
// Public endpoints:
//   - POST /signup: registers an account. Body: {"username","password"}.
//     Responds 200 {"message":"User created successfully"}.
//   - POST /login: issues a session token. Body: {"username","password"}.
//     Responds {"message","token","expires_at"} with the token also surfaced
//     via the `X-Session-Token` header and a `session_token` cookie.
//   - GET /healthz and GET /metrics.
//
// Endpoints behind RequireSession (token from `Authorization: Bearer` or the
// `session_token` cookie):
//   - POST /logout: revokes the current session and clears the cookie.
//   - GET /me: the authenticated account.
//   - POST /events, GET /events?sortBy=date|category|reminder: event creation
//     and listing exchanging the `eventDTO` payload defined in event_handler.go.
//   - GET /events.ics: the caller's events as an iCalendar feed.
//   - GET /reminders/stream: websocket delivering the caller's reminders as JSON.
package http
