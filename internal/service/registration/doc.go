// Package registration implements the person registration service.
//
// The service validates and normalizes incoming submissions into canonical
// domain.PersonRegistration values, then hands them to the Repository for
// persistence. Validation is a pure function of its input; the only
// blocking calls are the repository and the optional list cache.
//
// The service layer depends on the interfaces defined in repository.go.
// It never imports net/http or database/sql directly.
package registration
