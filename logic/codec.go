package logic

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire field names.
const (
	FieldType    = "type"
	FieldPayload = "payload"
)

type wireState struct {
	Loading bool     `json:"loading"`
	Items   []Item   `json:"items"`
	Bag     []string `json:"bag"`
}

// DecodeAction turns a {type, payload} struct into an Action.
//
// A type no container knows decodes to Unknown rather than an error, so it is
// dispatched as a no-op. A known type with the wrong payload shape is
// rejected with InvalidArgument.
func DecodeAction(msg *structpb.Struct) (Action, error) {
	fields := msg.GetFields()
	actionType := fields[FieldType].GetStringValue()
	if actionType == "" {
		return nil, NewInvalidArgument(ErrMsgActionTypeRequired)
	}
	payload := fields[FieldPayload]

	switch actionType {
	case TypeAddToBag, TypeRemoveFromBag:
		sv, ok := payload.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, NewInvalidArgumentf("%s: %s", actionType, ErrMsgPayloadNotString)
		}
		if actionType == TypeAddToBag {
			return AddToBag{ID: sv.StringValue}, nil
		}
		return RemoveFromBag{ID: sv.StringValue}, nil

	case TypeToggleLoading:
		bv, ok := payload.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, NewInvalidArgumentf("%s: %s", actionType, ErrMsgPayloadNotBool)
		}
		return ToggleLoading{Value: bv.BoolValue}, nil

	case TypeAddInitialItems:
		if _, ok := payload.GetKind().(*structpb.Value_ListValue); !ok {
			return nil, NewInvalidArgumentf("%s: %s", actionType, ErrMsgPayloadNotItems)
		}
		raw, err := protojson.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal items payload: %w", err)
		}
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, NewInvalidArgumentf("%s: %s: %v", actionType, ErrMsgPayloadNotItems, err)
		}
		if items == nil {
			items = []Item{}
		}
		return AddInitialItems{Items: items}, nil

	default:
		return Unknown{Name: actionType}, nil
	}
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(action Action) (*structpb.Struct, error) {
	var payload interface{}
	switch a := action.(type) {
	case AddToBag:
		payload = a.ID
	case RemoveFromBag:
		payload = a.ID
	case ToggleLoading:
		payload = a.Value
	case AddInitialItems:
		items := a.Items
		if items == nil {
			items = []Item{}
		}
		payload = items
	case Unknown:
		payload = nil
	default:
		return nil, NewInvalidArgumentf("unsupported action %T", action)
	}
	return toStruct(map[string]interface{}{
		FieldType:    action.Type(),
		FieldPayload: payload,
	})
}

// EncodeState renders a state snapshot as {loading, items, bag}.
func EncodeState(s State) (*structpb.Struct, error) {
	w := wireState{Loading: s.Loading, Items: s.Catalog, Bag: s.Bag}
	if w.Items == nil {
		w.Items = []Item{}
	}
	if w.Bag == nil {
		w.Bag = []string{}
	}
	return toStruct(w)
}

// DecodeState is the inverse of EncodeState.
func DecodeState(msg *structpb.Struct) (State, error) {
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return State{}, fmt.Errorf("marshal state: %w", err)
	}
	var w wireState
	if err := json.Unmarshal(raw, &w); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	s := State{Loading: w.Loading, Catalog: w.Items, Bag: w.Bag}
	if s.Catalog == nil {
		s.Catalog = []Item{}
	}
	if s.Bag == nil {
		s.Bag = []string{}
	}
	return s, nil
}

// toStruct goes through JSON so struct tags decide the wire names.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("unmarshal struct: %w", err)
	}
	return out, nil
}
