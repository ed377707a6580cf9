package encoder

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"json-decoding/internal/models"
)

func usersRelation() *models.Relation {
	return &models.Relation{
		ID:        1,
		Namespace: "public",
		Name:      "users",
		Columns: []models.Column{
			{Name: "id", Type: models.TypeSignedInteger, Ordinal: 1},
			{Name: "name", Type: models.TypeOther, Ordinal: 2},
		},
	}
}

func TestEncodeChange(t *testing.T) {
	assert := assert.New(t)
	rel := usersRelation()
	row := []models.ColumnValue{models.TextValue("1"), models.TextValue("Ann")}
	oldRow := []models.ColumnValue{models.TextValue("5"), models.NullValue()}

	for _, testCase := range []struct {
		Event  models.ChangeEvent
		Expect string
	}{
		{
			Event:  models.ChangeEvent{Kind: models.Insert, Relation: rel, NewRow: row},
			Expect: `{"type":"table","name":"public.users","change":"INSERT","data":{"id":1,"name":"Ann"}}`,
		},
		{
			Event: models.ChangeEvent{Kind: models.Update, Relation: rel, NewRow: []models.ColumnValue{
				models.TextValue("1"), models.NullValue(),
			}},
			Expect: `{"type":"table","name":"public.users","change":"UPDATE","data":{"id":1,"name":null}}`,
		},
		{
			Event:  models.ChangeEvent{Kind: models.Delete, Relation: rel, OldRow: oldRow},
			Expect: `{"type":"table","name":"public.users","change":"DELETE","data":{"id":5}}`,
		},
	} {
		out, err := EncodeChange(&testCase.Event)
		assert.NoError(err)
		assert.Equal(testCase.Expect, out)

		var decoded map[string]interface{}
		assert.NoError(json.Unmarshal([]byte(out), &decoded))
	}
}

func TestEncodeChangeQuotedName(t *testing.T) {
	assert := assert.New(t)
	rel := &models.Relation{
		Namespace: "shop",
		Name:      "order",
		Columns:   []models.Column{{Name: "id", Type: models.TypeSignedInteger, Ordinal: 1}},
	}
	event := &models.ChangeEvent{Kind: models.Insert, Relation: rel, NewRow: []models.ColumnValue{models.TextValue("1")}}

	out, err := EncodeChange(event)
	assert.NoError(err)
	assert.Equal(`{"type":"table","name":"shop.\"order\"","change":"INSERT","data":{"id":1}}`, out)

	var decoded struct {
		Name string `json:"name"`
	}
	assert.NoError(json.Unmarshal([]byte(out), &decoded))
	assert.Equal(`shop."order"`, decoded.Name)

	legacy, err := appendChange(nil, event, EscapeLegacy, 0)
	assert.NoError(err)
	assert.Equal(`{"type":"table","name":"shop."order"","change":"INSERT","data":{"id":1}}`, string(legacy))
}

func TestEncodeChangePreconditions(t *testing.T) {
	assert := assert.New(t)
	rel := usersRelation()
	row := []models.ColumnValue{models.TextValue("1"), models.TextValue("Ann")}

	for _, event := range []*models.ChangeEvent{
		nil,
		{Kind: models.Insert, NewRow: row},
		{Kind: models.Insert, Relation: rel},
		{Kind: models.Update, Relation: rel, OldRow: row},
		{Kind: models.Delete, Relation: rel, NewRow: row},
		{Kind: models.ChangeKind(9), Relation: rel, NewRow: row},
		{Kind: models.Insert, Relation: rel, NewRow: row[:1]},
	} {
		_, err := EncodeChange(event)
		assert.ErrorIs(err, ErrPrecondition)
	}
}
