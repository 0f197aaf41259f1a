// Package services defines interface Catalog for track search providers
// and its Spotify implementation.
//
// A Catalog performs authenticated searches against an external catalog API
// and narrows the candidates to a best-effort match. Failures are classified
// into an explicit [ErrorKind] taxonomy so callers can decide between
// retrying, backing off, or surfacing the error:
//
//	track, err := catalog.FindTrack(ctx, "Dream On", "Aerosmith", 0.8)
//	if cerr, ok := services.AsCatalogError(err); ok && cerr.Retryable() {
//		// retry per backoff policy
//	}
//
// The bearer credential is opaque to this package: it is forwarded on every
// request and a 401 is reported as [KindAuth], never refreshed locally.
package services
