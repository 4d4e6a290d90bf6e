package iterator

import (
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
)

// Iter is the contract every plan operator implements: pull the next
// result (writing it to its register, except aggregates which keep it in
// an internal accumulator), and reset. Synchronous iterators never return
// an error that means "come back later" — only RECEIVE can suspend, and it
// signals that via Env.NeedUserContinuation rather than a special return.
type Iter interface {
	// Next advances the iterator and reports whether a result is available.
	Next(env *Env) (bool, error)
	// Reset clears any accumulated state. If resetRegister is true the
	// iterator's own register slot is also cleared.
	Reset(env *Env, resetRegister bool) error
	// ResPos is the register slot this iterator writes its result to.
	ResPos() int32
}

// Build compiles a decoded plan Step tree into an executable Iter tree.
// This is the engine's single dispatch surface: one case per operator kind,
// generalizing the teacher's single AST-walking Engine type into a sum-type
// iterator factory.
func Build(step *queryplan.Step) (Iter, error) {
	if step == nil {
		return nil, nil
	}
	switch step.Kind {
	case queryplan.KindConst:
		return newConstIter(step)
	case queryplan.KindVarRef:
		return newVarRefIter(step), nil
	case queryplan.KindExternalVar:
		return newExtVarRefIter(step), nil
	case queryplan.KindFieldStep:
		return newFieldStepIter(step)
	case queryplan.KindArithOp:
		return newArithIter(step)
	case queryplan.KindFnMinMax:
		return newMinMaxIter(step)
	case queryplan.KindFnSum:
		return newSumIter(step)
	case queryplan.KindSort:
		return newSortIter(step)
	case queryplan.KindSFW:
		return newSFWIter(step)
	case queryplan.KindRecv:
		return newReceiveIter(step)
	default:
		return nil, unsupportedKind(step.Kind)
	}
}
