package schemacontent

// Field-level permission filtering. All functions here are pure: they
// perform no I/O and never mutate their inputs. The role's permission set
// is resolved by the external auth collaborator and supplied by the caller.

// CanViewField reports whether the role may read the field. A field with
// no view permission tag is visible to every role; the admin role
// satisfies every tag.
func CanViewField(field FieldDefinition, role Role) bool {
	if field.ViewPermission == "" {
		return true
	}
	return role.Has(field.ViewPermission)
}

// CanEditField reports whether the role may write the field. The
// effective edit tag is the explicit EditPermission, falling back to
// ViewPermission; with neither set, every role that can view the field
// may edit it.
func CanEditField(field FieldDefinition, role Role) bool {
	tag := field.EditPermission
	if tag == "" {
		tag = field.ViewPermission
	}
	if tag == "" {
		return CanViewField(field, role)
	}
	return role.Has(tag)
}

// FilterContent returns a copy of the content document whose Data mapping
// contains only keys for fields the role can view. Data keys with no
// matching field definition are dropped as well. All non-data attributes
// are unchanged; the input document is not mutated.
func FilterContent(content *Content, blueprint *Blueprint, role Role) *Content {
	if content == nil {
		return nil
	}

	filtered := *content
	filtered.Data = make(map[string]interface{}, len(content.Data))
	filtered.Meta = copyData(content.Meta)

	for key, value := range content.Data {
		field, ok := blueprint.FieldByKey(key)
		if !ok {
			continue
		}
		if CanViewField(field, role) {
			filtered.Data[key] = value
		}
	}
	return &filtered
}

// FilterBlueprint returns a copy of the blueprint whose field list
// contains only fields the role can view, preserving original order. The
// input blueprint is not mutated.
func FilterBlueprint(blueprint *Blueprint, role Role) *Blueprint {
	if blueprint == nil {
		return nil
	}

	filtered := *blueprint
	filtered.Fields = make([]FieldDefinition, 0, len(blueprint.Fields))
	for _, field := range blueprint.Fields {
		if CanViewField(field, role) {
			filtered.Fields = append(filtered.Fields, field)
		}
	}
	return &filtered
}

// restrictedEditKeys returns the patch keys naming fields the role may
// not edit, in blueprint field order. Unknown keys are reported by
// validation, not here.
func restrictedEditKeys(patch map[string]interface{}, blueprint *Blueprint, role Role) []string {
	var denied []string
	for _, field := range blueprint.Fields {
		if _, present := patch[field.Key]; !present {
			continue
		}
		if !CanEditField(field, role) {
			denied = append(denied, field.Key)
		}
	}
	return denied
}
