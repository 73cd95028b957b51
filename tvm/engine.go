// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package tvm implements the CORE of a deterministic stack/cell-oriented
// virtual machine: the execution engine, the typed stack model, the gas
// accounting subsystem, and the instruction handler registry (spec.md §2).
package tvm

import (
	"github.com/everx-labs/ever-vm/log"
)

// BehaviorModifiers is the small, closed set of host-controlled execution
// modifiers (spec.md §5, §9). It is a plain value carried per-Engine, never
// a package-level singleton, since concurrent engines may want different
// settings.
type BehaviorModifiers struct {
	ChksigAlwaysSucceed bool
}

// Engine is the driver loop: it holds cc (the currently executing
// continuation), the live control-register bank, the operand stack, the
// gas meter, and dispatches instructions via a Registry (spec.md §4.1).
//
// An Engine is single-use and single-threaded; distinct Engine instances
// share no mutable structure and may run concurrently (spec.md §5).
type Engine struct {
	cc       *Continuation
	ctrls    SaveList
	stack    *Stack
	gas      *Gas
	registry *Registry
	libs     *LibraryResolver

	capabilities uint64
	modifiers    BehaviorModifiers

	steps uint64

	pendingExcCode  ExceptionCode
	pendingExcValue StackItem

	halted   bool
	exitCode ExceptionCode
	exitArg  StackItem
}

// New constructs an Engine ready to execute code, per the Host → Engine
// input contract of spec.md §6.1.
func New(in *Input, registry *Registry) *Engine {
	e := &Engine{
		stack:           in.Stack,
		gas:             in.Gas,
		registry:        registry,
		capabilities:    in.Capabilities,
		modifiers:       in.BehaviorModifiers,
		libs:            NewLibraryResolver(in.Libraries),
		pendingExcValue: Null,
	}
	e.ctrls = *in.Ctrls.Clone()
	if !e.ctrls.Has(C0) {
		_ = e.ctrls.Set(C0, NewContinuation(NewExcQuit()))
	}
	if !e.ctrls.Has(C2) {
		_ = e.ctrls.Set(C2, NewContinuation(NewExcQuit()))
	}
	e.cc = NewOrdinary(in.Code)
	return e
}

// Stack returns the live operand stack.
func (e *Engine) Stack() *Stack { return e.stack }

// Gas returns the live gas meter.
func (e *Engine) Gas() *Gas { return e.gas }

// Ctrls returns the live control-register bank.
func (e *Engine) Ctrls() *SaveList { return &e.ctrls }

// Capabilities returns the host-supplied global capability bitmask.
func (e *Engine) Capabilities() uint64 { return e.capabilities }

// Modifiers returns the active behavior modifiers.
func (e *Engine) Modifiers() BehaviorModifiers { return e.modifiers }

// Libraries returns the engine's library-cell resolver (never nil).
func (e *Engine) Libraries() *LibraryResolver { return e.libs }

// Steps returns the number of instructions executed so far.
func (e *Engine) Steps() uint64 { return e.steps }

// Halted reports whether the driver loop has terminated.
func (e *Engine) Halted() bool { return e.halted }

// Run repeats Step until the machine halts, then returns the terminating
// exit code and exception argument (spec.md §6.2 exit_code/exit_arg).
func (e *Engine) Run() (ExceptionCode, StackItem) {
	for !e.halted {
		if err := e.step(); err != nil {
			log.Error("tvm: internal fault, halting", "err", err)
			e.halted = true
			e.exitCode = Fatal
			e.exitArg = Null
			break
		}
	}
	return e.exitCode, e.exitArg
}

// step fetches, decodes, and executes exactly one instruction, or advances
// a non-ordinary (driver) continuation one step, per spec.md §4.1's main
// loop. It returns a non-nil error only for conditions that are not
// themselves representable as a VM exception (a defensive backstop; well-
// formed handlers never produce one).
func (e *Engine) step() error {
	if e.halted {
		return nil
	}
	if e.cc.Kind != ContOrdinary {
		return e.runDriver(e.cc)
	}
	if e.cc.Code == nil || e.cc.Code.IsEmpty() {
		return e.implicitRet()
	}

	h, operands, instrBytes, decErr := e.registry.Decode(e.cc.Code, e.capabilities)
	if decErr != nil {
		return e.raise(InvalidOpcode, Null)
	}
	if err := e.gas.ChargeInstruction(instrBytes); err != nil {
		ve, _ := AsVMError(err)
		return e.raise(ve.Code, ve.Value)
	}
	e.steps++

	if err := h.Exec(e, operands); err != nil {
		if ve, ok := AsVMError(err); ok {
			return e.raise(ve.Code, ve.Value)
		}
		return err
	}
	return nil
}

// instantiate returns a fresh activation of k: its code cursor (if any)
// and savelist are cloned so the caller's own copy of k remains reusable
// for a later call/loop iteration; pointer fields (closure stack, Body/Cond)
// stay shared, while scalar fields such as RepeatCount are copied into the
// activation (spec.md §3.6 lifecycle, §5 copy-on-write).
func instantiate(k *Continuation) *Continuation {
	cp := *k
	if k.Code != nil {
		cp.Code = k.Code.Clone()
	}
	cp.Saved = *k.Saved.Clone()
	return &cp
}

// switchTo installs target as cc. Any control-register slot target.Saved
// specifies is first merged into the live ctrls bank (spec.md §3.6: a
// continuation's saved control regs are restored when it becomes current);
// slots target.Saved does not specify are left untouched, carrying over
// from before the switch.
func (e *Engine) switchTo(target *Continuation) error {
	if target == nil {
		target = NewExcQuit()
	}
	for i := 0; i < numCtrlRegs; i++ {
		if v, ok := target.Saved.Get(i); ok {
			if err := e.ctrls.Set(i, v); err != nil {
				return err
			}
		}
	}
	e.cc = instantiate(target)
	return nil
}

// Call implements CALL-family semantics: save cc into the live c0 register,
// then switch to target (spec.md §4.1.1). cc first keeps the outer c0 in its
// own savelist, so returning to cc restores that c0.
func (e *Engine) Call(target *Continuation) error {
	if err := e.cc.Saved.SaveOnce(C0, &e.ctrls); err != nil {
		return err
	}
	if err := e.ctrls.Set(C0, NewContinuation(e.cc)); err != nil {
		return err
	}
	return e.switchTo(target)
}

// Jump implements JMP: switch to target without saving cc anywhere.
func (e *Engine) Jump(target *Continuation) error {
	return e.switchTo(target)
}

// Return implements RET: pop (restore-by-reading) c0 and switch to it.
func (e *Engine) Return() error {
	item, ok := e.ctrls.Get(C0)
	if !ok {
		return e.switchTo(NewExcQuit())
	}
	k, err := item.Continuation()
	if err != nil {
		return err
	}
	return e.switchTo(k)
}

// ReturnAlt implements RETALT: switch to c1.
func (e *Engine) ReturnAlt() error {
	item, ok := e.ctrls.Get(C1)
	if !ok {
		return e.switchTo(NewExcQuit())
	}
	k, err := item.Continuation()
	if err != nil {
		return err
	}
	return e.switchTo(k)
}

// implicitRet performs the implicit-RET rule of spec.md §4.1.2: when cc's
// code is exhausted, switch to the live c0; if that resolves to ExcQuit,
// the machine halts with the pending exception code (0 on normal exit).
func (e *Engine) implicitRet() error {
	item, hasC0 := e.ctrls.Get(C0)
	var target *Continuation
	if hasC0 {
		k, err := item.Continuation()
		if err != nil {
			target = NewExcQuit()
		} else {
			target = k
		}
	} else {
		target = NewExcQuit()
	}
	return e.switchTo(target)
}

// raise enters the unwinder for a freshly-detected exception (spec.md §7).
// OutOfGas bypasses the installed handler entirely and halts immediately;
// every other code invokes the live c2.
func (e *Engine) raise(code ExceptionCode, value StackItem) error {
	if code == OutOfGas {
		e.pendingExcCode = code
		e.pendingExcValue = value
		return e.switchTo(NewExcQuit())
	}

	item, ok := e.ctrls.Get(C2)
	var handler *Continuation
	if ok {
		handler, _ = item.Continuation()
	}
	if handler == nil || handler.Kind == ContExcQuit {
		e.pendingExcCode = code
		e.pendingExcValue = value
		return e.switchTo(NewExcQuit())
	}

	if err := e.gas.ChargeException(); err != nil {
		e.pendingExcCode = OutOfGas
		e.pendingExcValue = NewInteger(FromInt64(int64(e.gas.Consumed())))
		return e.switchTo(NewExcQuit())
	}

	e.pendingExcCode = code
	e.pendingExcValue = value
	return e.switchTo(handler)
}

// runDriver advances a non-ordinary continuation one step: loop drivers
// re-fire or terminate, TRY/TRYKEEP handlers deliver the caught exception,
// PUSHINT continuations push their value, and ExcQuit halts the machine
// (spec.md §3.6, §4.1.3, §4.1.4).
func (e *Engine) runDriver(k *Continuation) error {
	switch k.Kind {
	case ContExcQuit:
		e.halted = true
		e.exitCode = e.pendingExcCode
		e.exitArg = e.pendingExcValue
		return nil

	case ContPushInt:
		e.stack.Push(NewInteger(k.PushValue))
		return e.Return()

	case ContTryCatch, ContCatchRevert:
		val := e.pendingExcValue
		code := e.pendingExcCode
		e.pendingExcCode = NormalExit
		e.pendingExcValue = Null
		if k.Kind == ContCatchRevert {
			if err := e.stack.Truncate(k.CatchDepth); err != nil {
				return err
			}
		}
		e.stack.Push(val)
		e.stack.Push(NewInteger(FromInt64(int64(code))))
		return e.switchTo(k.Body)

	case ContUntil:
		cond, err := e.stack.Pop()
		if err != nil {
			return err
		}
		v, err := cond.Integer()
		if err != nil {
			return err
		}
		if !v.IsNaN() && v.BigInt().Sign() != 0 {
			return e.Return()
		}
		return e.switchTo(k.Body)

	case ContRepeat:
		if k.RepeatCount <= 0 {
			return e.Return()
		}
		k.RepeatCount--
		// The body returns to this activation, which holds the decremented count.
		if err := k.Body.Saved.Set(C0, NewContinuation(k)); err != nil {
			return err
		}
		return e.switchTo(k.Body)

	case ContAgain:
		return e.switchTo(k.Body)

	case ContWhileCond:
		cond, err := e.stack.Pop()
		if err != nil {
			return err
		}
		v, err := cond.Integer()
		if err != nil {
			return err
		}
		if v.IsNaN() || v.BigInt().Sign() == 0 {
			return e.Return()
		}
		return e.switchTo(k.Body)

	case ContWhileBody:
		return e.switchTo(k.Cond)
	}
	return newVMError(Fatal, 0)
}

// Raise exposes the unwinder to instruction handlers (THROW/THROWARG and
// any primitive that detects a user-level fault beyond a plain VMError
// return, e.g. signature checks that must still run cleanup code first).
func (e *Engine) Raise(code ExceptionCode, value StackItem) error {
	return e.raise(code, value)
}
