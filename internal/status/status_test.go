package status

import "testing"

func TestWindowActiveAt(t *testing.T) {
	w := Open(10, 5, 0.5)
	cases := []struct {
		tick int64
		want bool
	}{{9, false}, {10, true}, {14, true}, {15, false}}
	for _, c := range cases {
		if got := w.ActiveAt(c.tick); got != c.want {
			t.Errorf("ActiveAt(%d) = %v, want %v", c.tick, got, c.want)
		}
	}
	if (Window{}).ActiveAt(0) {
		t.Error("zero window must be inactive")
	}
	if w.Remaining(12) != 3 {
		t.Errorf("remaining = %d", w.Remaining(12))
	}
}

func TestWindowExtendKeepsLongerEnd(t *testing.T) {
	w := Open(0, 100, 1)
	w.Extend(10, 50, 2)
	if w.End != 100 || w.Start != 0 || w.Magnitude != 2 {
		t.Errorf("extend = %+v", w)
	}
	w.Extend(200, 260, 3)
	if w.Start != 200 || w.End != 260 {
		t.Errorf("reopen = %+v", w)
	}
}

func TestDOTPulses(t *testing.T) {
	fx := NewEffects()
	fx.ApplyDOT(Poison, 100, 50, 7)

	var total int
	for tick := int64(100); tick < 200; tick++ {
		for _, p := range fx.Pulses(tick) {
			if p.Kind != Poison {
				t.Fatalf("unexpected kind %v", p.Kind)
			}
			total += p.Damage
		}
		fx.Expire(tick)
	}
	// pulses at 120 and 140, window ends at 150
	if total != 14 {
		t.Errorf("total DOT damage = %d, want 14", total)
	}
	if fx.DOTs[Poison].End != 0 {
		t.Error("expired DOT should be cleared")
	}
}

func TestStunExpiryClearsSlow(t *testing.T) {
	fx := NewEffects()
	fx.ApplyRoot(0, 10)
	if !fx.Stunned(5) || fx.SlowRatio(5) != 0 {
		t.Fatal("root should stun and pin")
	}
	if fx.Expire(9) {
		t.Error("stun ended early")
	}
	if !fx.Expire(10) {
		t.Error("stun should end at its end tick")
	}
	if fx.StunType != StunNone || fx.SlowRatio(10) != 1 {
		t.Errorf("after expiry: %+v", fx)
	}
}

func TestEnchantApply(t *testing.T) {
	e := EnchantFromItem("Enchant_Fire", 0, 4, 0, 0)
	if e.Kind != EnchantFire || e.Level != 1 || e.Duration != DOTInterval {
		t.Fatalf("profile = %+v", e)
	}
	fx := NewEffects()
	e.ApplyTo(&fx, 10)
	burn := fx.DOTs[Burn]
	if burn.Magnitude != 10 || burn.End != 30 || burn.Next != 30 {
		t.Errorf("burn = %+v", burn)
	}

	cold := EnchantFromItem("enchant_cold", 2, 0, 500, 40)
	if cold.Duration != 10 {
		t.Errorf("cold duration = %d", cold.Duration)
	}
	cold.ApplyTo(&fx, 10)
	if fx.SlowRatio(12) != 0.4 {
		t.Errorf("cold slow = %v", fx.SlowRatio(12))
	}

	if ParseEnchant("sword") != EnchantNone {
		t.Error("non-enchant tag parsed")
	}
}
