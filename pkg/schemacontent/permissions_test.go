package schemacontent_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelhq/schema-content/pkg/schemacontent"
)

func articleBlueprint() *schemacontent.Blueprint {
	return &schemacontent.Blueprint{
		ID:   uuid.New(),
		Name: "Article",
		Fields: []schemacontent.FieldDefinition{
			{Name: "Title", Key: "title", Type: schemacontent.FieldTypeText, Required: true},
			{Name: "Body", Key: "body", Type: schemacontent.FieldTypeRichText},
			{Name: "Internal Notes", Key: "notes", Type: schemacontent.FieldTypeText, ViewPermission: "editorial"},
			{Name: "Payout", Key: "payout", Type: schemacontent.FieldTypeNumber, ViewPermission: "finance", EditPermission: "finance:write"},
		},
	}
}

func TestCanViewField(t *testing.T) {
	open := schemacontent.FieldDefinition{Key: "title", Type: schemacontent.FieldTypeText}
	gated := schemacontent.FieldDefinition{Key: "notes", Type: schemacontent.FieldTypeText, ViewPermission: "editorial"}

	viewer := schemacontent.NewRole("viewer")
	editor := schemacontent.NewRole("editor", "editorial")

	assert.True(t, schemacontent.CanViewField(open, viewer))
	assert.False(t, schemacontent.CanViewField(gated, viewer))
	assert.True(t, schemacontent.CanViewField(gated, editor))
	assert.True(t, schemacontent.CanViewField(gated, schemacontent.AdminRole()),
		"admin satisfies every permission tag")
}

func TestCanEditFieldFallsBackToViewTag(t *testing.T) {
	// No edit tag: the view tag gates writes too.
	viewGated := schemacontent.FieldDefinition{Key: "notes", ViewPermission: "editorial"}
	assert.False(t, schemacontent.CanEditField(viewGated, schemacontent.NewRole("viewer")))
	assert.True(t, schemacontent.CanEditField(viewGated, schemacontent.NewRole("editor", "editorial")))

	// Distinct edit tag: viewing is not enough.
	split := schemacontent.FieldDefinition{Key: "payout", ViewPermission: "finance", EditPermission: "finance:write"}
	auditor := schemacontent.NewRole("auditor", "finance")
	assert.True(t, schemacontent.CanViewField(split, auditor))
	assert.False(t, schemacontent.CanEditField(split, auditor))
	assert.True(t, schemacontent.CanEditField(split, schemacontent.NewRole("payroll", "finance:write")))

	// No tags at all: anyone may edit.
	open := schemacontent.FieldDefinition{Key: "title"}
	assert.True(t, schemacontent.CanEditField(open, schemacontent.NewRole("viewer")))
}

func TestFilterContentDropsRestrictedFields(t *testing.T) {
	bp := articleBlueprint()
	doc := &schemacontent.Content{
		ID:          uuid.New(),
		BlueprintID: bp.ID,
		Slug:        "launch-post",
		Status:      schemacontent.ContentStatusPublished,
		Data: map[string]interface{}{
			"title":  "Launch Post",
			"body":   "<p>hello</p>",
			"notes":  "embargo until friday",
			"payout": 250.0,
			"stray":  "no definition",
		},
	}

	viewer := schemacontent.NewRole("viewer")
	got := schemacontent.FilterContent(doc, bp, viewer)

	assert.Equal(t, map[string]interface{}{
		"title": "Launch Post",
		"body":  "<p>hello</p>",
	}, got.Data)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Slug, got.Slug)
	assert.Equal(t, doc.Status, got.Status)

	// Input document untouched.
	assert.Len(t, doc.Data, 5)
}

func TestFilterContentAdminSeesEverythingDefined(t *testing.T) {
	bp := articleBlueprint()
	doc := &schemacontent.Content{
		Data: map[string]interface{}{
			"title": "x",
			"notes": "y",
			"stray": "z",
		},
	}

	got := schemacontent.FilterContent(doc, bp, schemacontent.AdminRole())
	assert.Equal(t, map[string]interface{}{"title": "x", "notes": "y"}, got.Data,
		"keys without a field definition are dropped even for admin")
}

func TestFilterContentPartialPermissions(t *testing.T) {
	bp := articleBlueprint()
	doc := &schemacontent.Content{
		Data: map[string]interface{}{
			"title":  "x",
			"notes":  "y",
			"payout": 1.0,
		},
	}

	editor := schemacontent.NewRole("editor", "editorial")
	got := schemacontent.FilterContent(doc, bp, editor)
	assert.Equal(t, map[string]interface{}{"title": "x", "notes": "y"}, got.Data)
}

func TestFilterContentNil(t *testing.T) {
	assert.Nil(t, schemacontent.FilterContent(nil, articleBlueprint(), schemacontent.AdminRole()))
}

func TestFilterBlueprintPreservesOrder(t *testing.T) {
	bp := articleBlueprint()
	viewer := schemacontent.NewRole("viewer")

	got := schemacontent.FilterBlueprint(bp, viewer)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "title", got.Fields[0].Key)
	assert.Equal(t, "body", got.Fields[1].Key)

	// Original untouched.
	assert.Len(t, bp.Fields, 4)

	editor := schemacontent.NewRole("editor", "editorial")
	got = schemacontent.FilterBlueprint(bp, editor)
	keys := make([]string, len(got.Fields))
	for i, f := range got.Fields {
		keys[i] = f.Key
	}
	assert.Equal(t, []string{"title", "body", "notes"}, keys)

	got = schemacontent.FilterBlueprint(bp, schemacontent.AdminRole())
	assert.Len(t, got.Fields, 4)
}

func TestRole(t *testing.T) {
	r := schemacontent.NewRole("editor", "editorial", "media")
	assert.Equal(t, "editor", r.Name())
	assert.False(t, r.IsAdmin())
	assert.True(t, r.Has("editorial"))
	assert.False(t, r.Has("finance"))
	assert.ElementsMatch(t, []string{"editorial", "media"}, r.Permissions())

	admin := schemacontent.AdminRole()
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.Has("anything-at-all"))
}
