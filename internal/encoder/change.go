package encoder

import (
	"fmt"

	"json-decoding/internal/models"
)

// EncodeChange returns the complete change record for event
func EncodeChange(event *models.ChangeEvent) (string, error) {
	buf, err := appendChange(nil, event, EscapeJSON, 0)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// appendChange builds
//
//	{"type":"table","name":"<qualified>","change":"<KIND>","data":{<fields>}}
//
// The new row is used for INSERT and UPDATE, the old row for DELETE.
// NULL cells are dropped only for DELETE. limit bounds the record size as in appendRow.
func appendChange(dst []byte, event *models.ChangeEvent, esc Escaping, limit int) ([]byte, error) {
	if event == nil || event.Relation == nil {
		return dst, fmt.Errorf("%w: change without relation", ErrPrecondition)
	}
	switch event.Kind {
	case models.Insert, models.Update, models.Delete:
	default:
		return dst, fmt.Errorf("%w: unsupported change kind %d", ErrPrecondition, event.Kind)
	}

	row, ok := event.Row()
	if !ok {
		return dst, fmt.Errorf("%w: %s on %s.%s has no row image",
			ErrPrecondition, event.Kind, event.Relation.Namespace, event.Relation.Name)
	}

	rel := event.Relation
	dst = append(dst, `{"type":"table","name":`...)
	dst = appendName(dst, QualifiedName(rel.Namespace, rel.Name), esc)
	dst = append(dst, `,"change":"`...)
	dst = append(dst, event.Kind.String()...)
	dst = append(dst, `","data":{`...)

	dst, err := appendRow(dst, rel.Columns, row, event.Kind == models.Delete, esc, limit)
	if err != nil {
		return dst, err
	}
	return append(dst, '}', '}'), nil
}
