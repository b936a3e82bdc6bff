package schemacontent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func validationBlueprint() *Blueprint {
	return &Blueprint{
		Name: "Product",
		Fields: []FieldDefinition{
			{Key: "name", Type: FieldTypeText, Required: true, Validation: &FieldValidation{
				MinLength: intPtr(3),
				MaxLength: intPtr(20),
			}},
			{Key: "sku", Type: FieldTypeText, Validation: &FieldValidation{
				Pattern: `^[A-Z]{2}-\d{4}$`,
			}},
			{Key: "price", Type: FieldTypeNumber, Required: true, Validation: &FieldValidation{
				Min: floatPtr(0),
				Max: floatPtr(10000),
			}},
			{Key: "in_stock", Type: FieldTypeBoolean},
			{Key: "released_on", Type: FieldTypeDate},
			{Key: "category", Type: FieldTypeSelect, Validation: &FieldValidation{
				Options: []string{"tools", "toys", "food"},
			}},
			{Key: "attrs", Type: FieldTypeJSON},
			{Key: "supplier", Type: FieldTypeRelation},
		},
	}
}

func TestValidateDataAccepts(t *testing.T) {
	bp := validationBlueprint()
	violations := validateData(bp, map[string]interface{}{
		"name":        "Claw Hammer",
		"sku":         "TL-0042",
		"price":       19.99,
		"in_stock":    true,
		"released_on": "2026-03-01T00:00:00Z",
		"category":    "tools",
		"attrs":       map[string]interface{}{"weight_g": 650},
		"supplier":    "3e9f0e46-1ad3-4a85-9a37-6f07a754c3a0",
	})
	assert.Empty(t, violations)
}

func TestValidateDataCollectsAllViolations(t *testing.T) {
	bp := validationBlueprint()
	violations := validateData(bp, map[string]interface{}{
		"name":     "ab",      // below min length
		"sku":      "bad",     // pattern mismatch
		"category": "weapons", // not an option
		"ghost":    true,      // unknown key
		// price missing (required)
	})

	keys := make(map[string]int)
	for _, v := range violations {
		keys[v.Key]++
	}
	assert.Equal(t, 1, keys["name"])
	assert.Equal(t, 1, keys["sku"])
	assert.Equal(t, 1, keys["category"])
	assert.Equal(t, 1, keys["ghost"])
	assert.Equal(t, 1, keys["price"])
	assert.Len(t, violations, 5, "all violations reported at once")
}

func TestValidateDataTypeMismatches(t *testing.T) {
	bp := validationBlueprint()

	tests := []struct {
		name string
		data map[string]interface{}
		key  string
	}{
		{name: "text gets number", data: map[string]interface{}{"name": 42, "price": 1.0}, key: "name"},
		{name: "number gets string", data: map[string]interface{}{"name": "abc", "price": "free"}, key: "price"},
		{name: "boolean gets string", data: map[string]interface{}{"name": "abc", "price": 1.0, "in_stock": "yes"}, key: "in_stock"},
		{name: "date gets garbage", data: map[string]interface{}{"name": "abc", "price": 1.0, "released_on": "tomorrow"}, key: "released_on"},
		{name: "relation gets number", data: map[string]interface{}{"name": "abc", "price": 1.0, "supplier": 7}, key: "supplier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := validateData(bp, tt.data)
			require.Len(t, violations, 1)
			assert.Equal(t, tt.key, violations[0].Key)
		})
	}
}

func TestValidateDataNumericWidening(t *testing.T) {
	bp := validationBlueprint()
	for _, price := range []interface{}{int(5), int64(5), float32(5), float64(5)} {
		violations := validateData(bp, map[string]interface{}{"name": "abc", "price": price})
		assert.Empty(t, violations, "%T should validate as number", price)
	}
}

func TestValidateDataNumberBounds(t *testing.T) {
	bp := validationBlueprint()
	violations := validateData(bp, map[string]interface{}{"name": "abc", "price": -1.0})
	require.Len(t, violations, 1)
	assert.Equal(t, "price", violations[0].Key)

	violations = validateData(bp, map[string]interface{}{"name": "abc", "price": 10001.0})
	require.Len(t, violations, 1)
}

func TestValidateDataDateAcceptsTimeValue(t *testing.T) {
	bp := validationBlueprint()
	violations := validateData(bp, map[string]interface{}{
		"name":        "abc",
		"price":       1.0,
		"released_on": time.Now(),
	})
	assert.Empty(t, violations)
}

func TestValidateDataNilValueCountsAsMissing(t *testing.T) {
	bp := validationBlueprint()
	violations := validateData(bp, map[string]interface{}{
		"name":  nil,
		"price": 1.0,
	})
	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Key)
	assert.Contains(t, violations[0].Message, "required")
}

func TestValidateBlueprint(t *testing.T) {
	good := &Blueprint{
		Name: "Page",
		Fields: []FieldDefinition{
			{Key: "title", Type: FieldTypeText},
			{Key: "body", Type: FieldTypeRichText},
		},
	}
	assert.Empty(t, validateBlueprint(good))

	bad := &Blueprint{
		Fields: []FieldDefinition{
			{Key: "title", Type: FieldTypeText},
			{Key: "title", Type: FieldTypeText}, // duplicate
			{Key: "", Type: FieldTypeText},      // empty key
			{Key: "typeless"},                   // empty type
		},
	}
	violations := validateBlueprint(bad)
	assert.Len(t, violations, 4, "missing name, duplicate key, empty key, empty type")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World! 2026", "hello-world-2026"},
		{"  Leading and Trailing  ", "leading-and-trailing"},
		{"UPPER", "upper"},
		{"many---dashes", "many-dashes"},
		{"a b  c", "a-b-c"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestValidSlug(t *testing.T) {
	assert.True(t, validSlug("hello-world-2026"))
	assert.True(t, validSlug("a"))
	assert.False(t, validSlug(""))
	assert.False(t, validSlug("-leading"))
	assert.False(t, validSlug("trailing-"))
	assert.False(t, validSlug("Upper-Case"))
	assert.False(t, validSlug("double--dash"))
}
