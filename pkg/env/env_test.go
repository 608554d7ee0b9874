package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("LENSBOOK_ENV_TEST", "   ")
	if got := Get("LENSBOOK_ENV_TEST", "dflt"); got != "dflt" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
	t.Setenv("LENSBOOK_ENV_TEST", " value ")
	if got := Get("LENSBOOK_ENV_TEST", "dflt"); got != "value" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("LENSBOOK_ENV_A", "")
	t.Setenv("LENSBOOK_ENV_B", "b")
	t.Setenv("LENSBOOK_ENV_C", "c")
	got, ok := First("LENSBOOK_ENV_A", "LENSBOOK_ENV_B", "LENSBOOK_ENV_C")
	if !ok || got != "b" {
		t.Fatalf("expected b, got %q (ok=%v)", got, ok)
	}
	if _, ok := First("LENSBOOK_ENV_A"); ok {
		t.Fatalf("blank-only keys should report missing")
	}
}
