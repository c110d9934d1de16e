package featureflags

import "testing"

func TestEnabled(t *testing.T) {
	t.Setenv("FLAG_TEST_ON", "true")
	t.Setenv("FLAG_TEST_OFF", "0")

	if !Enabled("test_on") {
		t.Error("expected test_on enabled")
	}
	if Enabled("test_off") {
		t.Error("expected test_off disabled")
	}
	if Enabled("test_unset") {
		t.Error("unset flag defaults to off")
	}
}

func TestEnabledDefault(t *testing.T) {
	t.Setenv("FLAG_PUSH", "off")

	if EnabledDefault("push", true) {
		t.Error("explicit off must override the default")
	}
	if !EnabledDefault("unset_flag", true) {
		t.Error("unset flag must fall back to the default")
	}
	if EnabledDefault("unset_flag", false) {
		t.Error("unset flag must fall back to the default")
	}

	t.Setenv("FLAG_GIBBERISH", "maybe")
	if !EnabledDefault("gibberish", true) {
		t.Error("unrecognized value must fall back to the default")
	}
}
