package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

func TestArchitecture(t *testing.T) {
	domain := archunit.Packages("domain", []string{".../internal/domain/..."})
	ports := archunit.Packages("ports", []string{".../internal/ports"})
	adapters := archunit.Packages("adapters", []string{".../internal/adapters/..."})
	config := archunit.Packages("config", []string{".../internal/config"})

	// Domain and ports should not depend on adapters or on service settings
	if err := domain.ShouldNotReferLayers(adapters); err != nil {
		t.Errorf("Architecture violation: Domain depends on Adapters: %v", err)
	}
	if err := domain.ShouldNotReferLayers(config); err != nil {
		t.Errorf("Architecture violation: Domain depends on Config: %v", err)
	}
	if err := ports.ShouldNotReferLayers(adapters); err != nil {
		t.Errorf("Architecture violation: Ports depend on Adapters: %v", err)
	}
}

func TestDomainPackages(t *testing.T) {
	for _, pkg := range []string{"projection", "expression", "dispatch", "translator", "service"} {
		layer := archunit.Packages(pkg, []string{".../internal/domain/" + pkg})
		if len(layer.Packages()) == 0 {
			t.Errorf("No %s package found in domain", pkg)
		}
	}
}
