// Package iam authenticates principals and authorizes their requests.
//
// Components:
//
//   - Provider: one credential source (DatabaseProvider, DirectoryProvider)
//   - Cascade: tries providers in priority order, skipping unavailable ones
//   - LoginService: cascade, user resolution, role scope, token pair
//   - RefreshService: rotates a token pair against current role state
//   - AccessVerifier: role checks backed by a cache.Backend
//   - RoleAdmin: role mutations that keep the cache coherent
//
// Request flow:
//
//	Login   → Cascade → Provider… → UserDirectory → TokenIssuer
//	Refresh → TokenIssuer → UserDirectory → TokenIssuer
//	Check   → cache.Backend ─(miss)→ UserDirectory
//
// Provider faults never escape a provider: they surface as an unavailable
// provider or a failed AuthResult. Storage faults are never recovered and
// propagate to the caller, so authorization cannot silently degrade.
package iam
