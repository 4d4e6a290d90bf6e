package queryplan

import queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"

// validateStep runs the per-kind validator required after decoding: arith
// and min/max function-code restriction (already enforced while decoding,
// re-checked here for steps built programmatically rather than read off the
// wire), and SFW's structural invariants.
func validateStep(s *Step) error {
	switch s.Kind {
	case KindArithOp:
		if s.ArithOp != OpAddSub && s.ArithOp != OpMultDiv {
			return queryerr.BadProtocol("ARITH_OP: function code %v not permitted", s.ArithOp).WithLocation(toErrLoc(s.Loc))
		}
		if len(s.ArithOps) != len(s.Args) {
			return queryerr.BadProtocol("ARITH_OP: operator string length %d does not match argument count %d", len(s.ArithOps), len(s.Args)).WithLocation(toErrLoc(s.Loc))
		}
		allowed := "+-"
		if s.ArithOp == OpMultDiv {
			allowed = "*/"
		}
		for _, c := range s.ArithOps {
			if c != rune(allowed[0]) && c != rune(allowed[1]) {
				return queryerr.BadProtocol("ARITH_OP: operator char %q not permitted for %v", c, s.ArithOp).WithLocation(toErrLoc(s.Loc))
			}
		}

	case KindFnMinMax:
		if s.MinMaxFunc != FuncMin && s.MinMaxFunc != FuncMax {
			return queryerr.BadProtocol("FN_MIN_MAX: function code %v not permitted", s.MinMaxFunc).WithLocation(toErrLoc(s.Loc))
		}

	case KindSFW:
		if s.FromStep == nil {
			return queryerr.BadProtocol("SFW: missing FROM step").WithLocation(toErrLoc(s.Loc))
		}
		if len(s.ColumnSteps) == 0 {
			return queryerr.BadProtocol("SFW: empty column list").WithLocation(toErrLoc(s.Loc))
		}
		if s.SelectStar && len(s.ColumnSteps) != 1 {
			return queryerr.BadProtocol("SFW: SELECT * requires exactly one column iterator, got %d", len(s.ColumnSteps)).WithLocation(toErrLoc(s.Loc))
		}
		for i, c := range s.ColumnSteps {
			if !isSynchronous(c) {
				return queryerr.BadProtocol("SFW: column iterator %d must be synchronous", i).WithLocation(toErrLoc(s.Loc))
			}
		}
		if !isSynchronous(s.OffsetStep) {
			return queryerr.BadProtocol("SFW: offset iterator must be synchronous").WithLocation(toErrLoc(s.Loc))
		}
		if !isSynchronous(s.LimitStep) {
			return queryerr.BadProtocol("SFW: limit iterator must be synchronous").WithLocation(toErrLoc(s.Loc))
		}
	}
	return nil
}

// isSynchronous reports whether step's subtree contains no RECV operator —
// RECEIVE is the engine's only asynchronous iterator (spec §4.2/§5), so any
// subtree that must complete in-line (SFW's column/offset/limit steps)
// cannot embed one.
func isSynchronous(step *Step) bool {
	if step == nil {
		return true
	}
	if step.Kind == KindRecv {
		return false
	}
	if step.Input != nil && !isSynchronous(step.Input) {
		return false
	}
	for _, a := range step.Args {
		if !isSynchronous(a) {
			return false
		}
	}
	for _, c := range step.ColumnSteps {
		if !isSynchronous(c) {
			return false
		}
	}
	if !isSynchronous(step.FromStep) || !isSynchronous(step.OffsetStep) || !isSynchronous(step.LimitStep) {
		return false
	}
	return true
}

func toErrLoc(l Location) queryerr.Location {
	loc, _ := queryerr.NewLocation(int(l.StartLine), int(l.StartColumn), int(l.EndLine), int(l.EndColumn))
	return loc
}
