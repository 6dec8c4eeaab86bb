package blame

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DeveloperLines lists the lines a developer edited.
type DeveloperLines struct {
	Developer string
	Lines     []int
}

// TagMap is the ordered line ownership of one file version.
type TagMap []DeveloperLines

// UnmarshalJSON decodes a {"developer": [lines...]} object keeping the key order of the document.
func (m *TagMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("tag map must be an object, got %v", tok)
	}

	var tags TagMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		developer, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected tag map key %v", keyTok)
		}
		var lines []int
		if err := dec.Decode(&lines); err != nil {
			return fmt.Errorf("lines of %q: %w", developer, err)
		}
		tags = append(tags, DeveloperLines{Developer: developer, Lines: lines})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = tags
	return nil
}

// MarshalJSON encodes the tag map as an object in its own order.
func (m TagMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Developer)
		if err != nil {
			return nil, err
		}
		lines, err := json.Marshal(entry.Lines)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(lines)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FileTags is the tag service answer for one file.
type FileTags struct {
	FileSysID    string `json:"fileSysId"`
	VersionSysID string `json:"versionSysId"`
	Tags         TagMap `json:"tags"`
}

// FileKey identifies a file in a tag map request.
type FileKey struct {
	FileClassName string `json:"fileType"`
	FileSysID     string `json:"fileSysId"`
}
