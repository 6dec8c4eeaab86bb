package record

import (
	"encoding/xml"
	"fmt"
	"strconv"

	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

// xmlNode is a generic element of an update XML payload. Attributes are ignored.
type xmlNode struct {
	XMLName xml.Name
	Text    string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

func (n xmlNode) child(name string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n xmlNode) fields(into map[string]string) {
	for _, f := range n.Nodes {
		into[f.XMLName.Local] = f.Text
	}
}

// FromUpdateSetPayload parses the XML payload of an update set row into a ScriptRecord.
// The payload root wraps an element named after className holding one child per field.
func FromUpdateSetPayload(xmlPayload, className, displayName string) (*ScriptRecord, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(xmlPayload), &root); err != nil {
		return nil, crnowerrors.NewMalformedPayloadError(displayName, err)
	}

	section := root.child(className)
	if section == nil {
		return nil, crnowerrors.NewMalformedPayloadError(displayName, fmt.Errorf("element %q not found in %q", className, root.XMLName.Local))
	}

	fields := make(map[string]string, len(section.Nodes))
	section.fields(fields)

	if appFile := root.child(AppFileElement); appFile != nil {
		appFile.fields(fields)
	} else {
		fields[FieldClassName] = className
	}

	rec := fromFields(fields)
	if rec.FileName == "" {
		rec.FileName = displayName
	}
	return rec, nil
}

// FromUpdateSetRow normalizes one sys_update_xml row.
func FromUpdateSetRow(row UpdateSetPayload) (*ScriptRecord, error) {
	return FromUpdateSetPayload(row.Payload, row.ClassName(), row.TargetName)
}

// FromFlatPayload maps a flat table API object to a ScriptRecord.
func FromFlatPayload(payload FlatPayload) *ScriptRecord {
	fields := make(map[string]string, len(payload))
	for k, v := range payload {
		fields[k] = flatValue(v)
	}
	return fromFields(fields)
}

func fromFields(fields map[string]string) *ScriptRecord {
	return &ScriptRecord{
		SysID:      fields[FieldSysID],
		ClassName:  firstNonEmpty(fields[FieldClassName], fields[FieldSourceTable]),
		FileName:   firstNonEmpty(fields[FieldSysName], fields[FieldName]),
		ScriptBody: fields[FieldScript],
		UpdatedBy:  fields[FieldUpdatedBy],
		Fields:     fields,
	}
}

// flatValue collapses table API values; reference fields arrive as {"link": ..., "value": ...}.
func flatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]interface{}:
		if inner, ok := val["value"]; ok {
			return flatValue(inner)
		}
		return ""
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
