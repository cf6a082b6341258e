package abi

import (
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
)

// Targets are the identifiers the contracts are deployed at. Oracle is
// optional.
type Targets struct {
	Registry  string `json:"registry"`
	Custody   string `json:"custody"`
	Certifier string `json:"certifier"`
	Token     string `json:"token"`
	Oracle    string `json:"oracle,omitempty"`
}

// Validate requires the four stage targets and rejects two kinds sharing an
// identifier.
func (t Targets) Validate() error {
	seen := make(map[string]string, 5)
	for _, p := range []struct{ kind, id string }{
		{KindRegistry, t.Registry},
		{KindCustody, t.Custody},
		{KindCertifier, t.Certifier},
		{KindToken, t.Token},
		{KindOracle, t.Oracle},
	} {
		if p.id == "" {
			if p.kind == KindOracle {
				continue
			}
			return fmt.Errorf("%w: %s target is required", common.ErrConfiguration, p.kind)
		}
		if other, ok := seen[p.id]; ok {
			return fmt.Errorf("%w: %s and %s share target %s", common.ErrConfiguration, other, p.kind, p.id)
		}
		seen[p.id] = p.kind
	}
	return nil
}

// Kinds maps each configured identifier to its contract kind.
func (t Targets) Kinds() map[string]string {
	m := map[string]string{
		t.Registry:  KindRegistry,
		t.Custody:   KindCustody,
		t.Certifier: KindCertifier,
		t.Token:     KindToken,
	}
	if t.Oracle != "" {
		m[t.Oracle] = KindOracle
	}
	return m
}
