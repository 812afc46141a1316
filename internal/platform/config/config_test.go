package config

import (
	"testing"
	"time"

	kit "asdelete/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	sw := root.Prefix("SWEEP_")
	if got := sw.key("WORKERS"); got != "SWEEP_WORKERS" {
		t.Fatalf("key() = %q, want %q", got, "SWEEP_WORKERS")
	}
	nested := root.Prefix("SERVICE_").Prefix("AEROSPIKE_")
	if got := nested.key("USER"); got != "SERVICE_AEROSPIKE_USER" {
		t.Fatalf("nested key() = %q, want %q", got, "SERVICE_AEROSPIKE_USER")
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  asdelete ")
	if got := c.MustString("NAME"); got != "asdelete" {
		t.Fatalf("MustString = %q, want %q", got, "asdelete")
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestRequire(t *testing.T) {
	c := New().Prefix("REQ_")
	t.Setenv("REQ_A", "x")
	t.Setenv("REQ_B", "y")
	c.Require("A", "B")
	kit.MustPanic(t, func() { c.Require("A", "C") })

	t.Setenv("REQ_WS", "   ")
	kit.MustPanic(t, func() { c.Require("WS") })
}

func TestHas(t *testing.T) {
	c := New().Prefix("H_")
	t.Setenv("H_SET", "1")
	t.Setenv("H_BLANK", "  ")
	if !c.Has("SET") || c.Has("BLANK") || c.Has("MISSING") {
		t.Fatalf("Has mismatch")
	}
}

func TestMayString(t *testing.T) {
	c := New().Prefix("S_")
	if got := c.MayString("MISSING", "def"); got != "def" {
		t.Fatalf("MayString default = %q, want %q", got, "def")
	}
	t.Setenv("S_NAME", " asdelete ")
	if got := c.MayString("NAME", "x"); got != "asdelete" {
		t.Fatalf("MayString value = %q, want %q", got, "asdelete")
	}
}

func TestMayInt(t *testing.T) {
	c := New().Prefix("I_")
	if got := c.MayInt("MISSING", 9); got != 9 {
		t.Fatalf("MayInt default = %d, want %d", got, 9)
	}
	t.Setenv("I_OK", " 7 ")
	if got := c.MayInt("OK", 0); got != 7 {
		t.Fatalf("MayInt ok = %d, want %d", got, 7)
	}
	t.Setenv("I_NEG", "-1")
	if got := c.MayInt("NEG", 0); got != -1 {
		t.Fatalf("MayInt negative = %d, want -1", got)
	}
	t.Setenv("I_BAD", "x")
	if got := c.MayInt("BAD", 3); got != 3 {
		t.Fatalf("MayInt bad -> default = %d, want %d", got, 3)
	}
}

func TestMayFloat64(t *testing.T) {
	c := New().Prefix("F_")
	if got := c.MayFloat64("MISSING", 1.5); got != 1.5 {
		t.Fatalf("MayFloat64 default = %v", got)
	}
	t.Setenv("F_RATE", "250.5")
	if got := c.MayFloat64("RATE", 0); got != 250.5 {
		t.Fatalf("MayFloat64 = %v, want 250.5", got)
	}
	t.Setenv("F_BAD", "fast")
	if got := c.MayFloat64("BAD", 2); got != 2 {
		t.Fatalf("MayFloat64 bad -> default = %v", got)
	}
}

func TestMayBool(t *testing.T) {
	c := New().Prefix("B_")
	if got := c.MayBool("MISSING", true); got != true {
		t.Fatalf("MayBool default true expected")
	}
	t.Setenv("B_T", "true")
	if got := c.MayBool("T", false); got != true {
		t.Fatalf("MayBool true expected")
	}
	t.Setenv("B_BAD", "nope")
	if got := c.MayBool("BAD", false); got != false {
		t.Fatalf("MayBool bad -> default false expected")
	}
}

func TestMayDuration(t *testing.T) {
	c := New().Prefix("DUR_")
	if got := c.MayDuration("MISS", 5*time.Second); got != 5*time.Second {
		t.Fatalf("MayDuration default expected")
	}
	t.Setenv("DUR_OK", "150ms")
	if got := c.MayDuration("OK", time.Second); got != 150*time.Millisecond {
		t.Fatalf("MayDuration ok = %v, want %v", got, 150*time.Millisecond)
	}
	t.Setenv("DUR_BAD", "nope")
	if got := c.MayDuration("BAD", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration bad -> default expected")
	}
}

func TestMayAddr(t *testing.T) {
	c := New().Prefix("A_")
	cases := []struct {
		name string
		env  string
		def  string
		want string
	}{
		{"missing uses default", "", ":9464", ":9464"},
		{"bare port gets colon", "9100", "", ":9100"},
		{"host and port kept", "127.0.0.1:8080", "", "127.0.0.1:8080"},
		{"garbage falls back", "not an addr", ":1", ":1"},
		{"port out of range falls back", ":70000", ":2", ":2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("A_ADDR", tc.env)
			if got := c.MayAddr("ADDR", tc.def); got != tc.want {
				t.Fatalf("MayAddr = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")

	if got := c.MayEnum("MISS", "explicit", "explicit", "rewrite"); got != "explicit" {
		t.Fatalf("MayEnum default = %q, want %q", got, "explicit")
	}

	t.Setenv("E_STRAT", "Rewrite")
	if got := c.MayEnum("STRAT", "explicit", "explicit", "rewrite"); got != "rewrite" {
		t.Fatalf("MayEnum allowed value = %q, want %q", got, "rewrite")
	}

	t.Setenv("E_BAD", "truncate")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "explicit", "explicit", "rewrite") })

	if got := c.MayEnum("MISSING", "", "explicit"); got != "" {
		t.Fatalf("MayEnum with empty def and missing env = %q, want empty string", got)
	}
}
