package main

// Frame is one call-frame on a Thread's call stack: the executing Func, the
// instance bound as `this` for the duration of the call, the instruction
// pointer, and the bookkeeping needed to unwind the value stack on return.
//
// Grounded on original_source/source/sl/thread.h's Frame / CallInfo layout.
type Frame struct {
	fn   *Func
	inst Value // GetInst's value; global for the outermost (host) call

	opIt int // index of the next op to execute within fn.Ops()

	// nInps is the count of stack cells below baseStackIdx that belong to
	// this call and must be discarded on return: nArgs+1 for a plain Call
	// (the callee sits there), nArgs+2 for an InstCall (receiver and key
	// sit there), or just nArgs for the host-initiated outer call.
	nInps int

	nArgs int // normalized to fn.NumParams()

	// baseStackIdx is the stack size at frame entry. Parameters occupy
	// baseStackIdx-nArgs .. baseStackIdx-1; locals occupy
	// baseStackIdx .. baseStackIdx+fn.NumLocals()-1.
	baseStackIdx int
}
