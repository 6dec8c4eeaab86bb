package servicenow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/scan-io-git/crnow/internal/record"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

const (
	updateSetTable  = "sys_update_xml"
	updateSetFields = "type,name,target_name,payload"
	metadataTable   = "sys_metadata"
	metadataFields  = "sys_name,sys_id,sys_update_name,sys_class_name"
)

// metadataRow is one sys_metadata entry of a scoped application.
type metadataRow struct {
	SysID     string `json:"sys_id"`
	SysName   string `json:"sys_name"`
	ClassName string `json:"sys_class_name"`
}

// orQuery builds "^field=a^ORfield=b".
func orQuery(field string, values []string) string {
	var sb strings.Builder
	for i, v := range values {
		sb.WriteString("^")
		if i > 0 {
			sb.WriteString("OR")
		}
		sb.WriteString(field)
		sb.WriteString("=")
		sb.WriteString(v)
	}
	return sb.String()
}

// FetchByUpdateSet returns the script rows of an update set, deletions excluded.
func (c *Client) FetchByUpdateSet(ctx context.Context, updateSetID string) ([]record.UpdateSetPayload, error) {
	c.Logger.Info("fetching update set files", "update_set", updateSetID)

	query := "action!=DELETE^update_set=" + updateSetID + orQuery("type", c.supportedTypes)
	rows, err := listTable[record.UpdateSetPayload](ctx, c, "fetch update set", updateSetTable, query, updateSetFields)
	if err != nil {
		return nil, err
	}

	c.Logger.Debug("update set files fetched", "update_set", updateSetID, "count", len(rows))
	return rows, nil
}

// FetchByScopedApp returns every supported script of a scoped application.
func (c *Client) FetchByScopedApp(ctx context.Context, scopedAppID string) ([]record.FlatPayload, error) {
	c.Logger.Info("fetching scoped app files", "scope", scopedAppID)

	query := "sys_scope=" + scopedAppID + orQuery("sys_class_name", c.supportedClasses)
	rows, err := listTable[metadataRow](ctx, c, "fetch scoped app", metadataTable, query, metadataFields)
	if err != nil {
		return nil, err
	}

	var files []record.FlatPayload
	for _, row := range rows {
		file, err := c.FetchFile(ctx, row.ClassName, row.SysID)
		if err != nil {
			return nil, err
		}
		if file != nil {
			files = append(files, file)
		}
	}

	c.Logger.Debug("scoped app files fetched", "scope", scopedAppID, "count", len(files))
	return files, nil
}

// FetchByDeltaWindow returns the supported scripts updated in the last days days.
// A class the instance does not know is treated as empty.
func (c *Client) FetchByDeltaWindow(ctx context.Context, days, maxDays int) ([]record.FlatPayload, error) {
	if days <= 0 || days > maxDays {
		return nil, crnowerrors.NewValidationError("duration", "delta days must be between 1 and %d, got %d", maxDays, days)
	}
	c.Logger.Info("fetching delta files", "days", days)

	query := fmt.Sprintf("sys_updated_on>javascript:gs.daysAgoStart(%d)", days)

	var (
		files    []record.FlatPayload
		failures []error
	)
	for _, class := range c.supportedClasses {
		rows, err := listTable[record.FlatPayload](ctx, c, "fetch delta files", class, query, "")
		if err != nil {
			var upstream *crnowerrors.UpstreamError
			if errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound {
				c.Logger.Debug("no files found for class", "class", class)
				continue
			}
			c.Logger.Error("failed to fetch delta files", "class", class, "error", err)
			failures = append(failures, err)
			continue
		}
		c.Logger.Debug("delta files fetched", "class", class, "count", len(rows))
		files = append(files, rows...)
	}

	if len(failures) > 0 && len(failures) == len(c.supportedClasses) {
		return nil, crnowerrors.NewUpstreamError("fetch delta files", 0, errors.Join(failures...))
	}
	return files, nil
}

// FetchByExplicitList fetches the listed files. Entries missing a field are skipped.
func (c *Client) FetchByExplicitList(ctx context.Context, refs []record.FileRef) ([]record.FlatPayload, error) {
	var files []record.FlatPayload
	for _, ref := range refs {
		if ref.SysID == "" || ref.ClassName == "" {
			c.Logger.Warn("skipping incomplete file entry", "sys_id", ref.SysID, "type", ref.ClassName)
			continue
		}
		file, err := c.FetchFile(ctx, ref.ClassName, ref.SysID)
		if err != nil {
			return nil, err
		}
		if file != nil {
			files = append(files, file)
		}
	}
	return files, nil
}

// FetchFile reads a single record of class. It returns nil when the instance answers with no result.
func (c *Client) FetchFile(ctx context.Context, className, sysID string) (record.FlatPayload, error) {
	operation := fmt.Sprintf("fetch file %s/%s", className, sysID)
	c.Logger.Debug("fetching file", "class", className, "sys_id", sysID)

	resp, err := c.get(ctx, tableAPI+className+"/"+sysID, nil)
	if err != nil {
		return nil, crnowerrors.NewUpstreamError(operation, 0, err)
	}

	var out tableResponse[record.FlatPayload]
	if err := unmarshalResponse(operation, resp, &out); err != nil {
		return nil, err
	}
	if len(out.Result) == 0 {
		c.Logger.Warn("no data found in the script file", "class", className, "sys_id", sysID)
		return nil, nil
	}
	return out.Result, nil
}
