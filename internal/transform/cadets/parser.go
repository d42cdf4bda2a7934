package cadets

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"proccount/pkg/models"
)

// Field names read from CADETS audit records.
const (
	FieldEvent        = "event"
	FieldSubjProcUUID = "subjprocuuid"
	FieldRetObjUUID1  = "ret_objuuid1"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FieldError reports a required field that is absent or not a string.
type FieldError struct {
	Field   string
	Event   string
	Present bool
}

func (e *FieldError) Error() string {
	what := "missing field"
	if e.Present {
		what = "non-string field"
	}
	if e.Event == "" {
		return fmt.Sprintf("%s: %s %q", models.ErrSchema, what, e.Field)
	}
	return fmt.Sprintf("%s: %s %q (event=%s)", models.ErrSchema, what, e.Field, e.Event)
}

// Is matches models.ErrSchema.
func (e *FieldError) Is(target error) bool {
	return target == models.ErrSchema
}

type stringField struct {
	value   string
	present bool
	ok      bool
}

func (f *stringField) read(iter *jsoniter.Iterator) {
	f.present = true
	if iter.WhatIsNext() == jsoniter.StringValue {
		f.value = iter.ReadString()
		f.ok = true
		return
	}
	f.value = ""
	f.ok = false
	iter.Skip()
}

// Parse converts one raw JSON value into an AuditEvent. Records must be
// objects carrying string subjprocuuid and event fields; fork and vfork
// records must also carry a string ret_objuuid1.
func Parse(data []byte) (*models.AuditEvent, error) {
	iter := json.BorrowIterator(data)
	defer json.ReturnIterator(iter)

	if next := iter.WhatIsNext(); next != jsoniter.ObjectValue {
		if next == jsoniter.NilValue {
			return nil, &FieldError{Field: FieldSubjProcUUID}
		}
		if iter.Error != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrParse, iter.Error)
		}
		return nil, fmt.Errorf("%w: record is not a JSON object", models.ErrSchema)
	}

	var event, subj, child stringField
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, field string) bool {
		switch field {
		case FieldEvent:
			event.read(iter)
		case FieldSubjProcUUID:
			subj.read(iter)
		case FieldRetObjUUID1:
			child.read(iter)
		default:
			iter.Skip()
		}
		return true
	})
	if iter.Error != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrParse, iter.Error)
	}

	if !subj.ok {
		return nil, &FieldError{Field: FieldSubjProcUUID, Event: event.value, Present: subj.present}
	}
	if !event.ok {
		return nil, &FieldError{Field: FieldEvent, Present: event.present}
	}

	out := &models.AuditEvent{
		Event:        event.value,
		SubjProcUUID: subj.value,
	}
	if models.IsForkEvent(out.Event) {
		if !child.ok {
			return nil, &FieldError{Field: FieldRetObjUUID1, Event: out.Event, Present: child.present}
		}
		out.RetObjUUID1 = child.value
	} else if child.ok {
		out.RetObjUUID1 = child.value
	}

	return out, nil
}
