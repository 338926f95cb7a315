package combat

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gunzgo/server/internal/content"
	"github.com/gunzgo/server/internal/geom"
	"github.com/gunzgo/server/internal/protocol"
	"github.com/gunzgo/server/internal/status"
	"github.com/gunzgo/server/internal/world"
)

type openSpace struct{}

func (openSpace) Blocked(_, _ geom.Vec3) bool           { return false }
func (openSpace) WallBetween(_, _ geom.Vec3) bool       { return false }
func (openSpace) IsBlockedMovement(_, _ geom.Vec3) bool { return false }

type deathLog struct{ died []*world.Player }

func (d *deathLog) PlayerDied(target, _ *world.Player) {
	target.Dead = true
	d.died = append(d.died, target)
}

type npcLog struct{ damage map[string]int }

func (n *npcLog) DamageNpc(_ *world.Player, npc *world.NPC, damage int) {
	n.damage[npc.ID] += damage
}

func fp(v float64) *float64 { return &v }

const (
	rifleID  = 10
	katanaID = 20
	smgID    = 30
)

func testCatalog() *content.Catalog {
	return content.NewCatalog(content.Tables{
		Items: []content.Item{
			{ID: rifleID, Type: "range", Weapon: "rifle", Damage: fp(20), Range: fp(1000), Delay: fp(100)},
			{ID: katanaID, Type: "melee", Weapon: "katana", Damage: fp(30), Range: fp(150), Delay: fp(300)},
			{ID: smgID, Type: "range", Weapon: "smg", Damage: fp(5), Range: fp(600), Delay: fp(50), Magazine: 2, MaxBullet: 4},
		},
	})
}

type fixture struct {
	w      *world.State
	r      *Resolver
	sink   *protocol.Recorder
	deaths *deathLog
	npcs   *npcLog
}

func newFixture() *fixture {
	f := &fixture{
		w:      world.NewState("m", 1),
		sink:   &protocol.Recorder{},
		deaths: &deathLog{},
		npcs:   &npcLog{damage: map[string]int{}},
	}
	f.w.Tick = 100
	f.r = New(Deps{
		State:    f.w,
		Geometry: openSpace{},
		Catalog:  testCatalog(),
		Sink:     f.sink,
		Npcs:     f.npcs,
		Deaths:   f.deaths,
	})
	return f
}

func (f *fixture) player(uid string, pos geom.Vec3) *world.Player {
	p := world.NewPlayer(world.Presence{SessionID: "s-" + uid, UserID: uid, Username: uid})
	p.Pos = pos
	p.Loadout = world.Loadout{Primary: rifleID, Melee: katanaID, Secondary: smgID}
	f.w.AddPlayer(p)
	return p
}

func aim(x, y, z float64) *geom.Vec3 {
	v := geom.V(x, y, z)
	return &v
}

func intp(v int) *int { return &v }

func TestApplyDamageSplit(t *testing.T) {
	p := world.NewPlayer(world.Presence{UserID: "u"})
	p.HP, p.AP = 30, 20
	hp, ap := ApplyDamage(p, 25, 0.6)
	if hp != 15 || ap != 10 {
		t.Fatalf("losses = %d/%d, want 15/10", hp, ap)
	}
	if p.HP != 15 || p.AP != 10 {
		t.Fatalf("after = %d/%d, want 15/10", p.HP, p.AP)
	}
}

func TestApplyDamageArmorSpill(t *testing.T) {
	p := world.NewPlayer(world.Presence{UserID: "u"})
	p.HP, p.AP = 12, 3
	hp, ap := ApplyDamage(p, 20, 0.5)
	if hp+ap != 20 {
		t.Fatalf("losses %d+%d do not add up to 20", hp, ap)
	}
	if ap != 3 || hp != 17 {
		t.Fatalf("losses = %d/%d, want 17/3", hp, ap)
	}
	if p.HP != 0 || p.AP != 0 {
		t.Fatalf("clamped = %d/%d, want 0/0", p.HP, p.AP)
	}
}

func TestApplyDamageIgnoresDead(t *testing.T) {
	p := world.NewPlayer(world.Presence{UserID: "u"})
	p.Dead = true
	p.HP, p.AP = 0, 40
	if hp, ap := ApplyDamage(p, 50, 0.5); hp != 0 || ap != 0 || p.AP != 40 {
		t.Fatalf("dead player took damage: %d/%d ap=%d", hp, ap, p.AP)
	}
}

func TestExplosionRatio(t *testing.T) {
	const radius, minRatio = 400.0, 0.2
	prev := math.Inf(1)
	for d := 0.0; d <= radius; d += 10 {
		r := ExplosionRatio(d, radius, minRatio)
		if r > prev {
			t.Fatalf("ratio rose at %v: %v > %v", d, r, prev)
		}
		if r < minRatio || r > 1 {
			t.Fatalf("ratio %v out of range at %v", r, d)
		}
		prev = r
	}
	if got := ExplosionRatio(radius, radius, minRatio); got != minRatio {
		t.Fatalf("ratio at edge = %v, want %v", got, minRatio)
	}
	if got := ExplosionRatio(30, radius, minRatio); got != 1 {
		t.Fatalf("ratio inside full range = %v, want 1", got)
	}

	// blasts smaller than the full-damage range still end at minRatio
	if got := ExplosionRatio(40, 40, minRatio); got != minRatio {
		t.Errorf("small blast edge = %v, want %v", got, minRatio)
	}
	if got := ExplosionRatio(45, 40, minRatio); got != minRatio {
		t.Errorf("outside small blast = %v, want %v", got, minRatio)
	}
	if got := ExplosionRatio(10, 40, minRatio); got != 1 {
		t.Errorf("small blast center = %v, want 1", got)
	}
}

func TestHitscanHitsTargetAhead(t *testing.T) {
	f := newFixture()
	shooter := f.player("a", geom.V(0, 0, 0))
	target := f.player("b", geom.V(300, 0, 0))

	f.r.Attack(shooter, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(rifleID)})

	if target.HP+target.AP != 180 {
		t.Fatalf("target hp/ap = %d/%d, want 20 total damage", target.HP, target.AP)
	}
	msgs := f.sink.Of(protocol.SPlayerDamage)
	if len(msgs) != 1 {
		t.Fatalf("damage messages = %d, want 1", len(msgs))
	}
	if target.Pos.X <= 300 {
		t.Fatalf("target not knocked back: %v", target.Pos)
	}
	if shooter.LastShot != f.w.Tick || shooter.CAFactor != 1 {
		t.Fatalf("recoil not recorded: last=%d factor=%v", shooter.LastShot, shooter.CAFactor)
	}
}

func TestHitscanCooldown(t *testing.T) {
	f := newFixture()
	shooter := f.player("a", geom.V(0, 0, 0))
	target := f.player("b", geom.V(300, 0, 0))

	in := protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(rifleID)}
	f.r.Attack(shooter, in)
	f.r.Attack(shooter, in)
	if n := len(f.sink.Of(protocol.SPlayerDamage)); n != 1 {
		t.Fatalf("damage messages = %d, want 1 within cooldown", n)
	}
	hp := target.HP + target.AP
	f.w.Tick += CooldownTicks(content.WeaponInfo{Delay: 100})
	f.r.Attack(shooter, in)
	if target.HP+target.AP >= hp {
		t.Fatal("attack after cooldown did not land")
	}
}

func TestHitscanSkipsDeadAndTeammates(t *testing.T) {
	f := newFixture()
	f.w.Stage.TeamMode = true
	shooter := f.player("a", geom.V(0, 0, 0))
	mate := f.player("b", geom.V(300, 0, 0))
	shooter.Team, mate.Team = world.TeamRed, world.TeamRed

	f.r.Attack(shooter, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(rifleID)})
	if mate.HP != 100 || mate.AP != 100 {
		t.Fatalf("teammate hurt: %d/%d", mate.HP, mate.AP)
	}

	mate.Team = world.TeamBlue
	mate.Dead = true
	f.w.Tick += 10
	f.r.Attack(shooter, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(rifleID)})
	if mate.HP != 100 || mate.AP != 100 {
		t.Fatalf("dead player hurt: %d/%d", mate.HP, mate.AP)
	}
}

func TestUnequippedWeaponRejected(t *testing.T) {
	f := newFixture()
	shooter := f.player("a", geom.V(0, 0, 0))
	f.player("b", geom.V(300, 0, 0))
	f.r.Attack(shooter, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(999)})
	if len(f.sink.Messages) != 0 || shooter.LastAttack > 0 {
		t.Fatal("attack with an unequipped weapon went through")
	}
}

func TestAmmoEmptiesAndReloads(t *testing.T) {
	f := newFixture()
	shooter := f.player("a", geom.V(0, 0, 0))
	in := protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(smgID)}

	f.r.Attack(shooter, in)
	f.w.Tick++
	f.r.Attack(shooter, in)
	a := shooter.Ammo[smgID]
	if a.Magazine != 0 || !a.Reloading(f.w.Tick) {
		t.Fatalf("after emptying: %+v", a)
	}
	last := shooter.LastAttack
	f.w.Tick++
	f.r.Attack(shooter, in)
	if shooter.LastAttack != last {
		t.Fatal("fired while reloading")
	}
	f.w.Tick = a.Reload.End
	f.r.Attack(shooter, in)
	if a.Magazine != 1 || a.Reserve != 0 {
		t.Fatalf("after reload and one shot: %+v", a)
	}
}

func TestMeleeGuardCounter(t *testing.T) {
	f := newFixture()
	attacker := f.player("a", geom.V(0, 0, 0))
	defender := f.player("b", geom.V(100, 0, 0))
	defender.Rot = geom.V(-1, 0, 0)
	defender.Anim = world.AnimGuardIdle
	defender.WeaponType = "katana"

	f.r.Attack(attacker, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(katanaID)})

	if defender.HP != 100 || defender.AP != 100 {
		t.Fatalf("blocked swing did damage: %d/%d", defender.HP, defender.AP)
	}
	tick := f.w.Tick
	if !defender.IsCharged(tick) {
		t.Fatal("defender should hold a counter charge")
	}
	if defender.Guarding(tick) {
		t.Fatal("guard should be cancelled right after a block")
	}
	if attacker.PendingGuardRecoil != tick+4 {
		t.Fatalf("recoil scheduled at %d, want %d", attacker.PendingGuardRecoil, tick+4)
	}
}

func TestMeleeHitsUnguarded(t *testing.T) {
	f := newFixture()
	attacker := f.player("a", geom.V(0, 0, 0))
	target := f.player("b", geom.V(100, 0, 0))

	f.r.Attack(attacker, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(katanaID)})
	hp, ap := 100-target.HP, 100-target.AP
	if hp != 18 || ap != 12 {
		t.Fatalf("losses = %d/%d, want 18/12", hp, ap)
	}
}

func TestMassiveNeedsCharge(t *testing.T) {
	f := newFixture()
	attacker := f.player("a", geom.V(0, 0, 0))
	behind := f.player("b", geom.V(-100, 0, 0))

	in := protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(katanaID), MeleeType: "massive"}
	f.r.Attack(attacker, in)
	if behind.HP != 100 {
		t.Fatal("uncharged massive swing hit behind the attacker")
	}

	f.w.Tick += 100
	f.r.Skill(attacker, protocol.SkillInput{Skill: "chargedshot"})
	f.r.Attack(attacker, in)
	if behind.HP == 100 {
		t.Fatal("charged massive swing missed a target in range")
	}
	if attacker.IsCharged(f.w.Tick) {
		t.Fatal("charge should be spent")
	}
}

func TestExplodeFallsOff(t *testing.T) {
	f := newFixture()
	owner := f.player("a", geom.V(0, 0, -1000))
	near := f.player("b", geom.V(100, 0, 0))
	far := f.player("c", geom.V(300, 0, 0))
	f.w.Npcs = []*world.NPC{{ID: "n1", Pos: geom.V(0, 100, 0), HP: 50, MaxHP: 50}}

	f.r.Explode(owner, geom.V(0, 0, 80), 100, 400, 0.2, 0)

	lostNear := 200 - near.HP - near.AP
	lostFar := 200 - far.HP - far.AP
	if lostNear <= lostFar || lostFar <= 0 {
		t.Fatalf("near lost %d, far lost %d", lostNear, lostFar)
	}
	if owner.HP != 100 {
		t.Fatal("owner outside the radius was hurt")
	}
	if f.npcs.damage["n1"] == 0 {
		t.Fatal("npc in range not damaged")
	}
}

func TestLethalHitReportsDeath(t *testing.T) {
	f := newFixture()
	shooter := f.player("a", geom.V(0, 0, 0))
	target := f.player("b", geom.V(300, 0, 0))
	target.HP, target.AP = 5, 0

	f.r.Attack(shooter, protocol.AttackInput{Aim: aim(1, 0, 0), WeaponID: intp(rifleID)})
	if len(f.deaths.died) != 1 || f.deaths.died[0] != target {
		t.Fatalf("deaths = %v", f.deaths.died)
	}
}

func TestSpreadDirWithinCone(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	dir := geom.V(1, 0, 0)
	for range 100 {
		out := SpreadDir(dir, 0.1, rng)
		if math.Abs(out.Len()-1) > 1e-9 {
			t.Fatalf("not unit: %v", out)
		}
		if angle := math.Acos(geom.Clamp(out.Dot(dir), -1, 1)); angle > 0.1+1e-9 {
			t.Fatalf("angle %v exceeds spread", angle)
		}
	}
}

func TestStunForMotion(t *testing.T) {
	cases := []struct {
		motion  string
		enchant status.EnchantKind
		want    status.StunType
	}{
		{"slash1", status.EnchantNone, status.StunDamage1},
		{"slash2", status.EnchantNone, status.StunDamage2},
		{"slash3", status.EnchantNone, status.StunDamage1},
		{"slash4", status.EnchantNone, status.StunDamage2},
		{"slash5", status.EnchantNone, status.StunSlash},
		{"massive", status.EnchantLightning, status.StunLightning},
		{"", status.EnchantNone, status.StunDamage1},
	}
	for _, c := range cases {
		if got := StunForMotion(c.motion, c.enchant); got != c.want {
			t.Errorf("StunForMotion(%q) = %v, want %v", c.motion, got, c.want)
		}
	}
}

func TestDashHits(t *testing.T) {
	if !DashHits(50, 0.1) || DashHits(200, 0.4) || !DashHits(200, 0.6) || DashHits(500, 0.9) || !DashHits(500, 0.97) {
		t.Fatal("dash cone thresholds wrong")
	}
}
