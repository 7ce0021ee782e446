package mmio

import "testing"

func TestDecodeMnemonic(t *testing.T) {
	cases := []struct {
		mnem string
		want Op
	}{
		{"LDR", OpLDR},
		{"ldr", OpLDR},
		{"LDRB", OpLDR},
		{"LDRSH", OpLDR},
		{"LDREQ", OpLDR},
		{"STR", OpSTR},
		{"STRNE", OpSTR},
		{"STRH", OpSTR},
		{"LDM", OpLDM},
		{"LDMIA", OpLDM},
		{"LDMFD", OpLDM},
		{"STM", OpSTM},
		{"STMDB", OpSTM},
		{"ORR", OpORR},
		{"ORRS", OpORR},
		{"AND", OpAND},
		{"BIC", OpBIC},
		{"EOR", OpEOR},
		{"MOV", OpUnknown},
		{"PUSH", OpUnknown},
		{"BX", OpUnknown},
		{"", OpUnknown},
	}
	for _, c := range cases {
		if got := DecodeMnemonic(c.mnem); got != c.want {
			t.Errorf("DecodeMnemonic(%q) = %v, want %v", c.mnem, got, c.want)
		}
	}
}

func TestExtractImmediate(t *testing.T) {
	cases := []struct {
		operands string
		wantImm  uint64
		wantForm ImmForm
		wantOK   bool
	}{
		{"R0, [R1, #0x18]", 0x18, ImmOffset, true},
		{"R0, [R1, #24]", 24, ImmOffset, true},
		{"r0, [r1, #0x18]!", 0x18, ImmOffset, true},
		{"R0, =0x40021000", 0x40021000, ImmLiteral, true},
		{"R0, [R1]", 0, ImmNone, false},
		{"R0, [R1, R2]", 0, ImmNone, false},
		{"R0, [R1, #-4]", 0, ImmNone, false},
		{"R0, R1", 0, ImmNone, false},
		{"{R4-R11}", 0, ImmNone, false},
	}
	for _, c := range cases {
		imm, form, ok := extractImmediate(c.operands)
		if imm != c.wantImm || form != c.wantForm || ok != c.wantOK {
			t.Errorf("extractImmediate(%q) = (0x%X, %v, %v), want (0x%X, %v, %v)",
				c.operands, imm, form, ok, c.wantImm, c.wantForm, c.wantOK)
		}
	}
}

func TestAccessKeyAndDestRegister(t *testing.T) {
	if k := accessKey("R0, [R1, #0x18]"); k != "R1,#0X18" {
		t.Errorf("accessKey = %q", k)
	}
	if k := accessKey("r0, [r1, #0x18]"); k != accessKey("R0,[R1,#0x18]") {
		t.Error("access keys must normalize case and spacing")
	}
	if k := accessKey("R0, R1"); k != "" {
		t.Errorf("register move produced key %q", k)
	}
	if r := destRegister("R0, [R1, #0x18]"); r != "R0" {
		t.Errorf("destRegister = %q", r)
	}
	if r := destRegister("r3"); r != "R3" {
		t.Errorf("destRegister = %q", r)
	}
}

func TestSplitInstruction(t *testing.T) {
	m, ops := splitInstruction("LDR R0, [R1, #0x18]")
	if m != "LDR" || ops != "R0, [R1, #0x18]" {
		t.Errorf("split = (%q, %q)", m, ops)
	}
	m, ops = splitInstruction("nop")
	if m != "nop" || ops != "" {
		t.Errorf("split = (%q, %q)", m, ops)
	}
}
