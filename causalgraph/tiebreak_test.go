package causalgraph

import "testing"

func TestTieBreakRegisters_PicksHighestAgent(t *testing.T) {
cg := CreateCG()
mike := AgentID("mike")
seph := AgentID("seph")

_, err := AddRaw(cg, RawVersion{mike, 0}, 1, nil)
if err != nil {
t.Fatalf("AddRaw(mike,0) failed: %v", err)
}
_, err = AddRaw(cg, RawVersion{seph, 1}, 1, nil)
if err != nil {
t.Fatalf("AddRaw(seph,1) failed: %v", err)
}

mikeLV, _ := RawToLV(cg, mike, 0)
sephLV, _ := RawToLV(cg, seph, 1)

pairs := []RegisterEntry[string]{
{Version: mikeLV, Value: "mike"},
{Version: sephLV, Value: "seph"},
}
got, err := TieBreakRegisters(cg, pairs)
if err != nil {
t.Fatalf("TieBreakRegisters returned error: %v", err)
}
if got.Value != "seph" {
t.Errorf("TieBreakRegisters() = %v, want seph (higher agent id)", got.Value)
}
}

func TestTieBreakRegisters_TieBrokenBySeq(t *testing.T) {
cg := CreateCG()
a := AgentID("a")

_, err := AddRaw(cg, RawVersion{a, 0}, 1, nil)
if err != nil {
t.Fatalf("AddRaw(a,0) failed: %v", err)
}
_, err = AddRaw(cg, RawVersion{a, 1}, 1, []RawVersion{{a, 0}})
if err != nil {
t.Fatalf("AddRaw(a,1) failed: %v", err)
}

lv0, _ := RawToLV(cg, a, 0)
lv1, _ := RawToLV(cg, a, 1)

// Order shouldn't matter: same agent, higher seq wins regardless of
// which one is listed first, and regardless of LV numbering.
pairs := []RegisterEntry[int]{
{Version: lv1, Value: 1},
{Version: lv0, Value: 0},
}
got, err := TieBreakRegisters(cg, pairs)
if err != nil {
t.Fatalf("TieBreakRegisters returned error: %v", err)
}
if got.Value != 1 {
t.Errorf("TieBreakRegisters() = %v, want 1 (higher seq)", got.Value)
}
}

func TestTieBreakRegisters_SingleEntry(t *testing.T) {
cg := CreateCG()
a := AgentID("solo")
_, err := AddRaw(cg, RawVersion{a, 0}, 1, nil)
if err != nil {
t.Fatalf("AddRaw failed: %v", err)
}
lv, _ := RawToLV(cg, a, 0)

got, err := TieBreakRegisters(cg, []RegisterEntry[bool]{{Version: lv, Value: true}})
if err != nil {
t.Fatalf("TieBreakRegisters returned error: %v", err)
}
if !got.Value {
t.Errorf("TieBreakRegisters() = %v, want true", got.Value)
}
}

func TestTieBreakRegisters_PanicsOnEmpty(t *testing.T) {
defer func() {
if r := recover(); r == nil {
t.Errorf("expected TieBreakRegisters to panic on empty input")
}
}()
cg := CreateCG()
_, _ = TieBreakRegisters(cg, []RegisterEntry[int]{})
}
