package servicenow

import (
	"context"

	"github.com/scan-io-git/crnow/internal/blame"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

// FetchTagMaps asks the companion scoped app which developer edited which lines of each file.
// The result is keyed by file sys_id.
func (c *Client) FetchTagMaps(ctx context.Context, keys []blame.FileKey) (map[string]blame.FileTags, error) {
	const operation = "fetch tag maps"
	c.Logger.Debug("fetching developer tags", "files", len(keys))

	if keys == nil {
		keys = []blame.FileKey{}
	}
	resp, err := c.post(ctx, c.tagsAPI, keys)
	if err != nil {
		return nil, crnowerrors.NewUpstreamError(operation, 0, err)
	}

	var out tableResponse[[]blame.FileTags]
	if err := unmarshalResponse(operation, resp, &out); err != nil {
		return nil, err
	}

	tags := make(map[string]blame.FileTags, len(out.Result))
	for _, ft := range out.Result {
		tags[ft.FileSysID] = ft
	}
	return tags, nil
}
