package crdt

import (
	"github.com/invopop/validation"

	"github.com/causalgraph/crdtdb/causalgraph"
)

// ValidateOperation checks that op is shaped well enough to attempt applying
// -- non-zero id, an action of a known kind, and a set-delete action naming
// its target -- before it ever reaches the causal graph. It does not (and
// cannot, without the replica's state) check causal validity; that is
// ApplyRemoteOp's job.
func ValidateOperation(op Operation) error {
	return validation.ValidateStruct(&op,
		validation.Field(&op.ID, validation.By(validRawVersion)),
		validation.Field(&op.Action, validation.By(validAction)),
	)
}

func validRawVersion(value interface{}) error {
	raw, ok := value.(causalgraph.RawVersion)
	if !ok {
		return validation.NewError("validation_invalid_type", "not a RawVersion")
	}
	if raw.Agent == "" {
		return validation.NewError("validation_empty_agent", "agent must not be empty")
	}
	if raw.Seq < 0 {
		return validation.NewError("validation_negative_seq", "seq must not be negative")
	}
	return nil
}

func validAction(value interface{}) error {
	action, ok := value.(Action)
	if !ok {
		return validation.NewError("validation_invalid_type", "not an Action")
	}
	switch action.Kind {
	case ActionRegisterSet, ActionMap, ActionSetInsert:
		return validation.ValidateStruct(&action,
			validation.Field(&action.Val, validation.By(validCreateValue)),
		)
	case ActionSetDelete:
		if action.Target == (causalgraph.RawVersion{}) {
			return validation.NewError("validation_missing_target", "setDelete action requires a target")
		}
		return nil
	default:
		return validation.NewError("validation_unknown_action_kind", "unrecognized action kind")
	}
}

func validCreateValue(value interface{}) error {
	cv, ok := value.(CreateValue)
	if !ok {
		return validation.NewError("validation_invalid_type", "not a CreateValue")
	}
	if cv.Kind == CreateCRDT {
		switch cv.NodeKind {
		case KindMap, KindRegister, KindSet:
			return nil
		default:
			return validation.NewError("validation_unknown_node_kind", "unrecognized node kind for crdt value")
		}
	}
	return nil
}
