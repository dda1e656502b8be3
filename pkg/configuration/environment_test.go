package configuration

import (
	"testing"
	"time"
)

func TestRouterOptions_ValidateClamps(t *testing.T) {
	opts := RouterOptions{
		RetryBaseDelay:  time.Millisecond,
		RetryMaxDelay:   0,
		CircuitLimit:    0,
		CircuitCooldown: time.Second,
		LoadTimeout:     0,
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if opts.RetryBaseDelay != 100*time.Millisecond {
		t.Errorf("base delay not clamped: %v", opts.RetryBaseDelay)
	}
	if opts.RetryMaxDelay != opts.RetryBaseDelay {
		t.Errorf("max delay should clamp up to base, got %v", opts.RetryMaxDelay)
	}
	if opts.CircuitLimit != 1 {
		t.Errorf("circuit limit not clamped: %d", opts.CircuitLimit)
	}
	if opts.CircuitCooldown != 5*time.Second {
		t.Errorf("circuit cooldown not clamped: %v", opts.CircuitCooldown)
	}
	if opts.LoadTimeout != time.Second {
		t.Errorf("load timeout not clamped: %v", opts.LoadTimeout)
	}
}

func TestRouterOptions_ValidateKeepsSaneValues(t *testing.T) {
	opts := RouterOptions{
		RetryBaseDelay:  2 * time.Second,
		RetryMaxDelay:   time.Minute,
		CircuitLimit:    7,
		CircuitCooldown: 10 * time.Minute,
		LoadTimeout:     15 * time.Second,
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if opts.RetryBaseDelay != 2*time.Second || opts.RetryMaxDelay != time.Minute {
		t.Errorf("delays changed: %v %v", opts.RetryBaseDelay, opts.RetryMaxDelay)
	}
	if opts.CircuitLimit != 7 || opts.CircuitCooldown != 10*time.Minute {
		t.Errorf("circuit changed: %d %v", opts.CircuitLimit, opts.CircuitCooldown)
	}
}

func TestTenancyOptions_GatewayHostSet(t *testing.T) {
	opts := TenancyOptions{GatewayHosts: "Api.Example.com, gw.example.com ,"}
	set := opts.GatewayHostSet()
	if len(set) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(set))
	}
	if _, ok := set["api.example.com"]; !ok {
		t.Error("expected lowercased api.example.com")
	}
	if _, ok := set["gw.example.com"]; !ok {
		t.Error("expected trimmed gw.example.com")
	}
}
