package fieldpath

// Resolve compiles an AccessPath into a Plan against one target's
// layout snapshot.
//
// The walk carries a current-type cursor starting at the path's root
// type. Each step looks up (currentType, field) in the snapshot:
//
//   - missing field: resolution stops with StatusFieldMissing at that
//     step. The ops produced so far are kept for diagnostics.
//   - kind disagreement: resolution stops with StatusTypeMismatch.
//     A width disagreement on the final scalar step counts as a
//     mismatch too; substituting a wrong-width read would silently
//     truncate or over-read.
//   - match: one op is appended and the cursor advances to the
//     field's pointee or member type.
//
// Resolve is a pure function: the same path and snapshot always yield
// an identical plan.
func Resolve(path AccessPath, snap Snapshot) Plan {
	plan := Plan{
		Path:        path.Name(),
		Status:      StatusResolved,
		StepIndex:   -1,
		Result:      path.Result(),
		Fingerprint: snap.Fingerprint(),
	}

	steps := path.Steps()
	current := path.RootType()
	for i, step := range steps {
		field, err := snap.LookupField(current, step.Field)
		if err != nil {
			plan.Status = StatusFieldMissing
			plan.StepIndex = i
			plan.Field = step.Field
			return plan
		}
		if field.Kind != step.Kind {
			plan.Status = StatusTypeMismatch
			plan.StepIndex = i
			plan.Field = step.Field
			return plan
		}

		final := i == len(steps)-1
		width := field.Size
		if step.Kind == KindPointer {
			width = pointerWidth
		}
		if final && !path.Result().Pointer && width != path.Result().Width {
			plan.Status = StatusTypeMismatch
			plan.StepIndex = i
			plan.Field = step.Field
			return plan
		}

		bound, ok := snap.TypeSize(current)
		if !ok {
			bound = 0
		}
		plan.Ops = append(plan.Ops, Op{
			Offset:      field.Offset,
			Width:       width,
			Dereference: step.Kind == KindPointer,
			Bound:       bound,
		})

		// Scalars are always final by descriptor construction, so
		// the cursor only ever advances through pointers and
		// embedded structs.
		current = field.TypeName
	}

	return plan
}

// ResolveAll resolves every path in order against the same snapshot.
func ResolveAll(paths []AccessPath, snap Snapshot) []Plan {
	plans := make([]Plan, 0, len(paths))
	for _, p := range paths {
		plans = append(plans, Resolve(p, snap))
	}
	return plans
}
