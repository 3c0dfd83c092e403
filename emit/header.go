package emit

// SharedHeader renders the runtime surface every emitted function and the
// dispatcher depend on: the CpuContext record, big-endian-explicit memory
// accessors, the condition-register helpers BranchCond/SetCr rendering
// needs, and the SDK stubs named after the original console's entry points.
// Grounded on disassembler.Disassemble's final strings.Builder render loop
// in the teacher repo, retargeted to a fixed prologue instead of a
// per-instruction line.
func SharedHeader() string {
	return `// generated by dolrecomp: shared runtime surface

struct CpuContext {
    gpr: [u32; 32],
    fpr: [f64; 32],
    cr: u32,
    lr: u32,
    ctr: u32,
    xer: u32,
    pc: u32,
    memory: ByteArray,
}

impl CpuContext {
    fn read_u8(&self, addr: u32) -> u8 { self.memory.read_u8(addr) }
    fn read_u16(&self, addr: u32) -> u16 { self.memory.read_u16_be(addr) }
    fn read_u32(&self, addr: u32) -> u32 { self.memory.read_u32_be(addr) }
    fn read_u64(&self, addr: u32) -> u64 { self.memory.read_u64_be(addr) }
    fn read_f32(&self, addr: u32) -> f32 { f32::from_bits(self.read_u32(addr)) }
    fn read_f64(&self, addr: u32) -> f64 { f64::from_bits(self.read_u64(addr)) }

    fn write_u8(&mut self, addr: u32, v: u8) { self.memory.write_u8(addr, v) }
    fn write_u16(&mut self, addr: u32, v: u16) { self.memory.write_u16_be(addr, v) }
    fn write_u32(&mut self, addr: u32, v: u32) { self.memory.write_u32_be(addr, v) }
    fn write_u64(&mut self, addr: u32, v: u64) { self.memory.write_u64_be(addr, v) }
    fn write_f32(&mut self, addr: u32, v: f32) { self.write_u32(addr, v.to_bits()) }
    fn write_f64(&mut self, addr: u32, v: f64) { self.write_u64(addr, v.to_bits()) }
}

// cmp returns -1/0/1 the way a PowerPC compare instruction's LT/GT/EQ bits
// are derived, for set_cr_field to pack into a condition-register field.
fn cmp(a: i64, b: i64) -> i64 {
    if a < b { -1 } else if a > b { 1 } else { 0 }
}

// set_cr_field packs a cmp() result into CR field `field`'s four bits
// (LT, GT, EQ, SO), leaving every other field untouched.
fn set_cr_field(cr: u32, field: u8, c: i64) -> u32 {
    let bits: u32 = match c {
        v if v < 0 => 0b1000,
        v if v > 0 => 0b0100,
        _ => 0b0010,
    };
    let shift = (7 - field) * 4;
    (cr & !(0xF << shift)) | (bits << shift)
}

// branch_taken evaluates BranchCond's BO/BI test against the live CR,
// mirroring the BO=12/14/15 ("true") and BO=4/6/7 ("false") forms
// ppc.conditionName recognizes; BO=20 ("branch always") is handled by the
// caller never emitting a BranchCond for it in the first place.
fn branch_taken(cr: u32, bo: u8, bi: u8) -> bool {
    let field = bi / 4;
    let bitpos = bi % 4;
    let shift = (7 - field) * 4 + (3 - bitpos);
    let bit = (cr >> shift) & 1 == 1;
    match bo {
        12 | 14 | 15 => bit,
        4 | 6 | 7 => !bit,
        _ => bit,
    }
}

// rotl32 implements the rotate-and-mask family (rlwinm/rlwimi/rlwnm) as a
// plain 32-bit rotate; mask application, where the original instruction
// narrowed past a full rotate, is folded into the caller's expression.
fn rotl32(v: u32, amount: u32) -> u32 {
    v.rotate_left(amount & 31)
}

// dispatch routes a runtime address to the emitted function that implements
// the code originally located there; the translated dispatcher.src file
// supplies the match arms.
fn dispatch(address: u32, ctx: &mut CpuContext);

// unimplemented_instruction marks a decode failure the pipeline chose to
// carry forward rather than abort on (spec scenario 5): the raw word is
// preserved for diagnostics, and the call is a safe no-op at runtime.
fn unimplemented_instruction(raw: u32) {}

// panic_unsupported_function marks a whole function the Emitter could not
// translate (spec.md §4.7's UnsupportedFunction stub).
fn panic_unsupported_function(entry: u32) {}

// SDK stubs: named after the entry points generated code expects the host
// to supply. Bodies are intentionally empty; a host embedding the
// translated program links real implementations in.
fn OSReport(fmt_addr: u32, ctx: &CpuContext) {}
fn GXBegin(primitive: u32, vtxfmt: u32, count: u32) {}
fn PADRead(status_addr: u32, ctx: &mut CpuContext) -> i32 { 0 }
`
}
