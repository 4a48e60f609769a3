// Package http exposes the class timetable over HTTP.
//
// The router exposes the following endpoints:
//   - GET /classes/{class}/entries: the class timetable. `?refresh=true` reloads it from
//     storage first.
//   - POST /classes/{class}/entries: creates one entry from civil input
//     {"subject","room","zoomId","courseId","date","start","end","offsetHours"}.
//   - POST /classes/{class}/entries/series: creates a recurring entry; the body adds
//     {"frequency","weekdays","startsOn","endsOn"} and drops "date".
//   - PATCH /classes/{class}/entries/{id}: edits time and location. Civil fields
//     ("date","start","end") and raw instants ("startAt","endAt") are both accepted.
//   - POST /classes/{class}/entries/{id}/relocate: {"date","hour"} keeps the duration.
//   - DELETE /classes/{class}/entries/{id}: idempotent removal, 204 either way.
//   - GET /classes/{class}/export.ics and /classes/{class}/export.csv.
//   - GET, POST /classes/{class}/participants and
//     DELETE /classes/{class}/participants/{participant}: notification audience.
//   - GET /healthz: database reachability.
//
// Rejected mutations return 422 with every violation, stale ids 404, transient storage
// failures 503 with Retry-After and corrupt stored data 500 with error_code
// DATA_CORRUPTION. Request/response DTOs live alongside their handlers.
package http
