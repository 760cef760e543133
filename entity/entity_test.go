package entity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/rdb/entity"
)

func loadCRM(t *testing.T) *entity.Registry {
	t.Helper()
	reg, err := entity.LoadFile("testdata/crm.yaml")
	require.NoError(t, err)
	return reg
}

func TestLoadYAML(t *testing.T) {
	reg := loadCRM(t)
	assert.Equal(t, []string{"Account", "AccountContact", "Case", "Contact"}, reg.Types())

	account, ok := reg.Definition("Account")
	require.True(t, ok)
	assert.Equal(t, "account", account.TableName())
	assert.Equal(t, []string{"id", "name", "type"}, account.AttributeNames())
	assert.Equal(t, []string{"cases", "contacts"}, account.RelationNames())

	contacts, ok := account.Relation("contacts")
	require.True(t, ok)
	assert.Equal(t, entity.ManyMany, contacts.Type)
	assert.Equal(t, "AccountContact", contacts.RelationName)
	assert.Equal(t, []string{"accountId", "contactId"}, contacts.MidKeys)

	cases, ok := account.Relation("cases")
	require.True(t, ok)
	assert.Equal(t, "id", cases.Key)
	assert.Equal(t, "accountId", cases.ForeignKey)

	c, ok := reg.Definition("Case")
	require.True(t, ok)
	assert.Equal(t, "cases", c.TableName())
	belongs, _ := c.Relation("account")
	assert.Equal(t, "accountId", belongs.Key)
	assert.Equal(t, "id", belongs.ForeignKey)

	ac, _ := reg.Definition("AccountContact")
	assert.Equal(t, "account_contact", ac.TableName())
	assert.Equal(t, "account_id", ac.Column("accountId"))
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown_field", "entities:\n  A:\n    tabel: x\n"},
		{"unknown_relation_type", "entities:\n  A:\n    relations:\n      b:\n        type: oneOf\n        entity: B\n"},
		{"relation_without_entity", "entities:\n  A:\n    relations:\n      b:\n        type: hasMany\n"},
		{"mid_keys", "entities:\n  A:\n    relations:\n      b:\n        type: manyMany\n        entity: B\n        midKeys: [x]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entity.LoadYAML(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := entity.LoadFile("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestManyManyDefaults(t *testing.T) {
	reg, err := entity.NewRegistry(&entity.Definition{
		Type: "Lead",
		Relations: map[string]*entity.Relation{
			"campaigns": {Type: entity.ManyMany, Entity: "Campaign"},
		},
	})
	require.NoError(t, err)
	d, _ := reg.Definition("Lead")
	r, _ := d.Relation("campaigns")
	assert.Equal(t, "CampaignLead", r.RelationName)
	assert.Equal(t, []string{"leadId", "campaignId"}, r.MidKeys)

	err = reg.Register(&entity.Definition{Type: "Lead"})
	assert.Error(t, err)
}

func TestEntity(t *testing.T) {
	reg := loadCRM(t)
	f := entity.NewFactory(reg)

	id := uuid.NewString()
	a := f.Create("Account")
	a.Set("id", id)
	a.SetMany(map[string]any{"name": "Acme", "type": "Customer"})

	assert.Equal(t, "Account", a.EntityType())
	assert.Equal(t, id, a.ID())
	assert.Equal(t, "Acme", a.Get("name"))
	assert.True(t, a.Has("type"))
	assert.False(t, a.Has("missing"))
	assert.Equal(t, []string{"id", "name", "type"}, a.Attributes())

	vm := a.ValueMap()
	vm["name"] = "changed"
	assert.Equal(t, "Acme", a.Get("name"))

	assert.False(t, a.IsFetched())
	a.SetAsFetched()
	assert.True(t, a.IsFetched())
	a.SetAsNotFetched()
	assert.False(t, a.IsFetched())

	assert.Equal(t, entity.ManyMany, a.RelationType("contacts"))
	assert.Equal(t, entity.RelationType(""), a.RelationType("nothing"))
	v, ok := a.RelationParam("contacts", entity.ParamEntity)
	require.True(t, ok)
	assert.Equal(t, "Contact", v)
	v, ok = a.RelationParam("contacts", entity.ParamRelationName)
	require.True(t, ok)
	assert.Equal(t, "AccountContact", v)
	_, ok = a.RelationParam("contacts", "bogus")
	assert.False(t, ok)
	_, ok = a.RelationParam("nothing", entity.ParamEntity)
	assert.False(t, ok)

	unknown := f.Create("Widget")
	assert.Equal(t, "Widget", unknown.EntityType())
	assert.Nil(t, unknown.Definition())
	assert.Equal(t, entity.RelationType(""), unknown.RelationType("x"))

	assert.True(t, entity.BelongsTo.ToOne())
	assert.True(t, entity.HasOne.ToOne())
	assert.False(t, entity.HasMany.ToOne())
	assert.False(t, entity.ManyMany.ToOne())
}

func TestList(t *testing.T) {
	f := entity.NewFactory(nil)
	l := f.CreateCollection("Note")
	assert.Equal(t, "Note", l.EntityType())
	assert.Equal(t, 0, l.Len())

	for _, text := range []string{"a", "b", "c"} {
		n := f.Create("Note")
		n.Set("id", uuid.NewString())
		n.Set("text", text)
		l.Append(n)
	}
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, "b", l.At(1).Get("text"))

	ctx := context.Background()
	var seen []string
	for e, err := range l.All(ctx) {
		require.NoError(t, err)
		seen = append(seen, e.Get("text").(string))
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)

	arr, err := l.ToArray(ctx)
	require.NoError(t, err)
	assert.Len(t, arr, 3)

	vms, err := l.ValueMapList(ctx)
	require.NoError(t, err)
	require.Len(t, vms, 3)
	assert.Equal(t, "c", vms[2]["text"])

	all, err := entity.Collect(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, arr, all)

	l.SetAsFetched()
	assert.True(t, l.IsFetched())
	l.SetAsNotFetched()
	assert.False(t, l.IsFetched())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = entity.Collect(cctx, l)
	assert.ErrorIs(t, err, context.Canceled)
}
