package record

import (
	"strings"

	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

// Canonical field names of ServiceNow script tables.
const (
	FieldScript       = "script"
	FieldSysID        = "sys_id"
	FieldClassName    = "sys_class_name"
	FieldSourceTable  = "sys_source_table"
	FieldUpdatedBy    = "sys_updated_by"
	FieldSysName      = "sys_name"
	FieldName         = "name"
	AppFileElement    = "sys_app_file"
	UpdateRootElement = "record_update"
)

// ScriptRecord is the canonical unit submitted for review.
type ScriptRecord struct {
	SysID      string
	ClassName  string
	FileName   string
	ScriptBody string
	UpdatedBy  string

	// Fields holds every raw field of the payload the record was built from.
	Fields map[string]string
}

// Validate rejects records that cannot enter the review pipeline.
func (r *ScriptRecord) Validate() error {
	if r == nil {
		return crnowerrors.NewValidationError("record", "record is nil")
	}
	if r.SysID == "" {
		return crnowerrors.NewValidationError(FieldSysID, "record %q has no sys_id", r.FileName)
	}
	if r.ScriptBody == "" {
		return crnowerrors.NewValidationError(FieldScript, "record %q (%s) has no script", r.FileName, r.SysID)
	}
	return nil
}

// Label returns a human readable identifier of the record for diagnostics.
func (r *ScriptRecord) Label() string {
	if r.FileName != "" {
		return r.FileName
	}
	return r.SysID
}

// Params returns the values rule conditions are evaluated against.
// Canonical names always exist so that conditions never miss a parameter.
func (r *ScriptRecord) Params() map[string]interface{} {
	params := make(map[string]interface{}, len(r.Fields)+5)
	for k, v := range r.Fields {
		params[k] = v
	}
	params[FieldSysID] = r.SysID
	params[FieldClassName] = r.ClassName
	params[FieldName] = r.FileName
	params[FieldScript] = r.ScriptBody
	params[FieldUpdatedBy] = r.UpdatedBy
	return params
}

// UpdateSetPayload is one sys_update_xml row of an update set.
type UpdateSetPayload struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	TargetName string `json:"target_name"`
	Payload    string `json:"payload"`
}

// ClassName derives the script class from the update name, formatted as <class>_<sys_id>.
func (p UpdateSetPayload) ClassName() string {
	idx := strings.LastIndex(p.Name, "_")
	if idx <= 0 {
		return p.Name
	}
	return p.Name[:idx]
}

// FlatPayload is one table API row.
type FlatPayload map[string]interface{}

// FileRef identifies a single script to review.
type FileRef struct {
	SysID     string `json:"sys_id" validate:"required"`
	ClassName string `json:"type" validate:"required"`
}

var fileTypes = map[string]string{
	"sys_script_include":     "Script Include",
	"sys_script_client":      "Client Script",
	"sys_script":             "Business Rule",
	"catalog_script_client":  "Catalog Client Scripts",
	"sysevent_script_action": "Script Action",
	"sys_ui_script":          "UI Script",
	"sys_ui_page":            "UI Page",
}

// DisplayType returns the display name of the given script class.
func DisplayType(className string) string {
	return fileTypes[className]
}

// ClassForType returns the script class of the given display type.
func ClassForType(displayType string) string {
	for class, t := range fileTypes {
		if t == displayType {
			return class
		}
	}
	return ""
}

// TypesForClasses returns the display types of the given classes, skipping unknown ones.
func TypesForClasses(classes []string) []string {
	var types []string
	for _, class := range classes {
		if t := DisplayType(class); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// DefaultSupportedClasses are the script classes reviewed when none are configured.
var DefaultSupportedClasses = []string{"sys_script_include", "sys_script_client", "sys_script"}

// DefaultSupportedTypes are the update set row types matching DefaultSupportedClasses.
var DefaultSupportedTypes = SupportedTypes(DefaultSupportedClasses)

// SupportedTypes returns the update set row types to fetch for classes.
// Catalog client scripts are stored as client scripts and follow sys_script_client.
func SupportedTypes(classes []string) []string {
	types := TypesForClasses(classes)
	for _, class := range classes {
		if class == "sys_script_client" {
			types = append(types, DisplayType("catalog_script_client"))
			break
		}
	}
	return types
}
