// Package service contains the application-specific use cases that sit
// between the HTTP layer and the stores in internal/store.
//
// Services receive their dependencies through constructor injection and
// never depend on a concrete storage implementation. They translate store
// errors into service-level sentinels so the API layer can map them to
// status codes:
//
//   - ErrTaskNotFound  -> 404
//   - ErrNotOwned      -> 403
//   - domain.ErrValidation (wrapped) -> 400
//
// Authentication lives in the auth subpackage.
package service
