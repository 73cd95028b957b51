// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// registerCont wires the continuation / control-flow family (spec.md
// §4.1.1-§4.1.4) to opcode prefixes 0x70-0x8F.
func registerCont(r *Registry) {
	r.add("PUSHCONT", 0x70, 8, 0, HandlerFunc(opPushCont), decodeRefCont)
	r.add("CALLREF", 0x71, 8, 0, HandlerFunc(opCallref), decodeRefCont)
	r.add("JMPREF", 0x72, 8, 0, HandlerFunc(opJmpref), decodeRefCont)
	r.add("CALLX", 0x73, 8, 0, HandlerFunc(opCallx), decodeNone)
	r.add("JMPX", 0x74, 8, 0, HandlerFunc(opJmpx), decodeNone)
	r.add("RET", 0x75, 8, 0, HandlerFunc(opRet), decodeNone)
	r.add("RETALT", 0x76, 8, 0, HandlerFunc(opRetAlt), decodeNone)
	r.add("IFRET", 0x77, 8, 0, HandlerFunc(opIfRet), decodeNone)
	r.add("IFNOTRET", 0x78, 8, 0, HandlerFunc(opIfNotRet), decodeNone)
	r.add("IF", 0x79, 8, 0, HandlerFunc(opIf), decodeNone)
	r.add("IFNOT", 0x7A, 8, 0, HandlerFunc(opIfNot), decodeNone)
	r.add("IFELSE", 0x7B, 8, 0, HandlerFunc(opIfElse), decodeNone)
	r.add("UNTIL", 0x7C, 8, 0, HandlerFunc(opUntil), decodeNone)
	r.add("WHILE", 0x7D, 8, 0, HandlerFunc(opWhile), decodeNone)
	r.add("REPEAT", 0x7E, 8, 0, HandlerFunc(opRepeat), decodeNone)
	r.add("AGAIN", 0x7F, 8, 0, HandlerFunc(opAgain), decodeNone)
	r.add("TRY", 0x80, 8, 0, HandlerFunc(opTry), decodeNone)
	r.add("TRYKEEP", 0x81, 8, 0, HandlerFunc(opTryKeep), decodeNone)
	r.add("THROW", 0x82, 8, 0, HandlerFunc(opThrow), decodeU16)
	r.add("THROWIF", 0x83, 8, 0, HandlerFunc(opThrowIf), decodeU16)
	r.add("THROWIFNOT", 0x84, 8, 0, HandlerFunc(opThrowIfNot), decodeU16)
	r.add("THROWARG", 0x85, 8, 0, HandlerFunc(opThrowArg), decodeU16)
}

func opPushCont(e *Engine, ops Operands) error {
	e.stack.Push(NewContinuation(ops.Cont))
	return nil
}

func opCallref(e *Engine, ops Operands) error { return e.Call(ops.Cont) }

func opJmpref(e *Engine, ops Operands) error { return e.Jump(ops.Cont) }

func opCallx(e *Engine, ops Operands) error {
	k, err := popCont(e)
	if err != nil {
		return err
	}
	return e.Call(k)
}

func opJmpx(e *Engine, ops Operands) error {
	k, err := popCont(e)
	if err != nil {
		return err
	}
	return e.Jump(k)
}

func opRet(e *Engine, ops Operands) error { return e.Return() }

func opRetAlt(e *Engine, ops Operands) error { return e.ReturnAlt() }

func opIfRet(e *Engine, ops Operands) error {
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if f {
		return e.Return()
	}
	return nil
}

func opIfNotRet(e *Engine, ops Operands) error {
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if !f {
		return e.Return()
	}
	return nil
}

func opIf(e *Engine, ops Operands) error {
	k, err := popCont(e)
	if err != nil {
		return err
	}
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if f {
		return e.Call(k)
	}
	return nil
}

func opIfNot(e *Engine, ops Operands) error {
	k, err := popCont(e)
	if err != nil {
		return err
	}
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if !f {
		return e.Call(k)
	}
	return nil
}

func opIfElse(e *Engine, ops Operands) error {
	kFalse, err := popCont(e)
	if err != nil {
		return err
	}
	kTrue, err := popCont(e)
	if err != nil {
		return err
	}
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if f {
		return e.Call(kTrue)
	}
	return e.Call(kFalse)
}

// opUntil implements UNTIL: pop body, wrap it with a loop driver that
// re-fires until body leaves a nonzero flag on the stack (spec.md §4.1.4).
func opUntil(e *Engine, ops Operands) error {
	body, err := popCont(e)
	if err != nil {
		return err
	}
	driver := &Continuation{Kind: ContUntil, Nargs: -1, Body: body}
	if err := driver.Saved.Set(C0, NewContinuation(e.cc)); err != nil {
		return err
	}
	if err := body.Saved.Set(C0, NewContinuation(driver)); err != nil {
		return err
	}
	return e.switchTo(body)
}

// opWhile implements WHILE: pop body then cond; cond runs first, and each
// time it completes the WhileCond driver pops its flag and either enters
// body or exits to the loop's caller.
func opWhile(e *Engine, ops Operands) error {
	body, err := popCont(e)
	if err != nil {
		return err
	}
	cond, err := popCont(e)
	if err != nil {
		return err
	}
	whileCond := &Continuation{Kind: ContWhileCond, Nargs: -1, Body: body}
	whileBody := &Continuation{Kind: ContWhileBody, Nargs: -1, Cond: cond}
	if err := whileCond.Saved.Set(C0, NewContinuation(e.cc)); err != nil {
		return err
	}
	if err := cond.Saved.Set(C0, NewContinuation(whileCond)); err != nil {
		return err
	}
	if err := body.Saved.Set(C0, NewContinuation(whileBody)); err != nil {
		return err
	}
	return e.switchTo(cond)
}

// opRepeat implements REPEAT: pop body then the iteration count.
func opRepeat(e *Engine, ops Operands) error {
	body, err := popCont(e)
	if err != nil {
		return err
	}
	n, err := popInt(e)
	if err != nil {
		return err
	}
	if n.IsNaN() {
		return newVMError(IntegerOverflow, 0)
	}
	count := n.BigInt().Int64()
	if count <= 0 {
		return nil
	}
	driver := &Continuation{Kind: ContRepeat, Nargs: -1, Body: body, RepeatCount: count}
	if err := driver.Saved.Set(C0, NewContinuation(e.cc)); err != nil {
		return err
	}
	if err := body.Saved.Set(C0, NewContinuation(driver)); err != nil {
		return err
	}
	driver.RepeatCount--
	return e.switchTo(body)
}

// opAgain implements AGAIN: pop body, loop it forever (only an exception or
// explicit non-loop control transfer can exit).
func opAgain(e *Engine, ops Operands) error {
	body, err := popCont(e)
	if err != nil {
		return err
	}
	driver := &Continuation{Kind: ContAgain, Nargs: -1, Body: body}
	if err := body.Saved.Set(C0, NewContinuation(driver)); err != nil {
		return err
	}
	return e.switchTo(body)
}

// installTry wires TRY/TRYKEEP (spec.md §4.1.3): body runs with catch
// installed as c2, and both body and catch must resume at the code
// following TRY on completion — so cc is saved as c0 into each of them
// before the switch, the same way opUntil/opRepeat save cc into their
// drivers. cc first keeps the outer c0 in its own savelist, so resuming it
// restores that c0 and the code after TRY ends with an ordinary implicit RET.
func installTry(e *Engine, body, catch *Continuation, revert bool) error {
	prevC2, _ := e.ctrls.Get(C2)
	kind := ContTryCatch
	if revert {
		kind = ContCatchRevert
	}
	handler := &Continuation{Kind: kind, Nargs: -1, Body: catch, CatchDepth: e.stack.Depth()}
	if err := handler.Saved.Set(C2, prevC2); err != nil {
		return err
	}
	if err := e.ctrls.Set(C2, NewContinuation(handler)); err != nil {
		return err
	}
	if err := e.cc.Saved.SaveOnce(C0, &e.ctrls); err != nil {
		return err
	}
	after := NewContinuation(e.cc)
	if err := body.Saved.Set(C0, after); err != nil {
		return err
	}
	if err := catch.Saved.Set(C0, after); err != nil {
		return err
	}
	return e.switchTo(body)
}

func opTry(e *Engine, ops Operands) error {
	catch, err := popCont(e)
	if err != nil {
		return err
	}
	body, err := popCont(e)
	if err != nil {
		return err
	}
	return installTry(e, body, catch, false)
}

func opTryKeep(e *Engine, ops Operands) error {
	catch, err := popCont(e)
	if err != nil {
		return err
	}
	body, err := popCont(e)
	if err != nil {
		return err
	}
	return installTry(e, body, catch, true)
}

func opThrow(e *Engine, ops Operands) error {
	return e.Raise(ExceptionCode(ops.UInt), NewInteger(FromInt64(0)))
}

func opThrowIf(e *Engine, ops Operands) error {
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if f {
		return e.Raise(ExceptionCode(ops.UInt), NewInteger(FromInt64(0)))
	}
	return nil
}

func opThrowIfNot(e *Engine, ops Operands) error {
	f, err := popBool(e)
	if err != nil {
		return err
	}
	if !f {
		return e.Raise(ExceptionCode(ops.UInt), NewInteger(FromInt64(0)))
	}
	return nil
}

func opThrowArg(e *Engine, ops Operands) error {
	v, err := e.stack.Pop()
	if err != nil {
		return err
	}
	return e.Raise(ExceptionCode(ops.UInt), v)
}
