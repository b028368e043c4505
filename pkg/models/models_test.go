package models

import "testing"

func TestScrapeModeValid(t *testing.T) {
	for _, mode := range []ScrapeMode{ModeStandard, ModeHidden, ModeAll, ModeRecent} {
		if !mode.Valid() {
			t.Errorf("expected %q to be valid", mode)
		}
	}
	for _, mode := range []ScrapeMode{"", "turbo", "Standard", "HIDDEN"} {
		if mode.Valid() {
			t.Errorf("expected %q to be invalid", mode)
		}
	}
}

func TestDefaultStealthSettings(t *testing.T) {
	s := DefaultStealthSettings("+12025550123")

	if s.UserID != "+12025550123" {
		t.Errorf("UserID = %q", s.UserID)
	}
	if !s.AntiDetection || !s.UserAgentRotation || !s.RandomDelays ||
		!s.RequestThrottling || !s.HeaderSpoofing {
		t.Error("expected protection toggles on by default")
	}
	if s.Fingerprinting {
		t.Error("fingerprinting defaults off")
	}
	if s.StealthLevel != 75 {
		t.Errorf("StealthLevel = %d, want 75", s.StealthLevel)
	}
}
