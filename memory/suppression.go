package memory

import "github.com/meshpay/payops-agent/core"

// SuppressIssuer upserts a suppression for the issuer, overwriting any
// existing entry. A non-positive duration falls back to the default.
func (s *Store) SuppressIssuer(issuer, reason string, durationMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if durationMS <= 0 {
		durationMS = DefaultSuppressionMS
	}
	now := s.nowMS()
	s.issuerSupp[issuer] = core.Suppression{
		Reason:       reason,
		SuppressedAt: now,
		ExpiresAt:    now + durationMS,
	}
}

// SuppressMethod upserts a suppression for the payment method.
func (s *Store) SuppressMethod(method, reason string, durationMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if durationMS <= 0 {
		durationMS = DefaultSuppressionMS
	}
	now := s.nowMS()
	s.methodSupp[method] = core.Suppression{
		Reason:       reason,
		SuppressedAt: now,
		ExpiresAt:    now + durationMS,
	}
}

// UnsuppressIssuer deletes the issuer's entry. Idempotent.
func (s *Store) UnsuppressIssuer(issuer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.issuerSupp, issuer)
}

// UnsuppressMethod deletes the method's entry. Idempotent.
func (s *Store) UnsuppressMethod(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.methodSupp, method)
}

// IsIssuerSuppressed reports liveness of the issuer's suppression, purging
// the entry first if it has expired.
func (s *Store) IsIssuerSuppressed(issuer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.issuerSupp[issuer]
	if !ok {
		return false
	}
	if sup.Expired(s.nowMS()) {
		delete(s.issuerSupp, issuer)
		return false
	}
	return true
}

// IsMethodSuppressed reports liveness of the method's suppression, purging
// the entry first if it has expired.
func (s *Store) IsMethodSuppressed(method string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.methodSupp[method]
	if !ok {
		return false
	}
	if sup.Expired(s.nowMS()) {
		delete(s.methodSupp, method)
		return false
	}
	return true
}

// Suppressions purges all expired entries across both maps, then returns a
// snapshot of the live registry.
func (s *Store) Suppressions() core.SuppressionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppressionsLocked()
}

func (s *Store) suppressionsLocked() core.SuppressionSet {
	now := s.nowMS()
	for k, v := range s.issuerSupp {
		if v.Expired(now) {
			delete(s.issuerSupp, k)
		}
	}
	for k, v := range s.methodSupp {
		if v.Expired(now) {
			delete(s.methodSupp, k)
		}
	}

	set := core.SuppressionSet{
		Issuers: make(map[string]core.Suppression, len(s.issuerSupp)),
		Methods: make(map[string]core.Suppression, len(s.methodSupp)),
	}
	for k, v := range s.issuerSupp {
		set.Issuers[k] = v
	}
	for k, v := range s.methodSupp {
		set.Methods[k] = v
	}
	return set
}
