package servicenow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/crnow/internal/record"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/httpclient"
)

const tableAPI = "/api/now/v1/table/"

// Client reads script records and line ownership tags from a ServiceNow instance.
type Client struct {
	HTTPClient *httpclient.Client
	BaseURL    string
	Logger     hclog.Logger

	pageSize         int
	supportedClasses []string
	supportedTypes   []string
	tagsAPI          string
}

// New initializes a client for instance using the global HTTP and review settings.
func New(globalConfig *config.Config, logger hclog.Logger, instance config.Instance) (*Client, error) {
	httpClient, err := httpclient.New(logger, globalConfig)
	if err != nil {
		logger.Error("failed to initialize HTTP client", "error", err)
		return nil, err
	}

	httpClient.RestyClient.
		SetBasicAuth(instance.Username, instance.Password)

	review := globalConfig.Review
	classes := review.SupportedClasses
	if len(classes) == 0 {
		classes = record.DefaultSupportedClasses
	}

	return &Client{
		HTTPClient:       httpClient,
		BaseURL:          config.InstanceURL(instance),
		Logger:           logger,
		pageSize:         config.SetThen(review.PageSize, config.DefaultPageSize),
		supportedClasses: classes,
		supportedTypes:   record.SupportedTypes(classes),
		tagsAPI:          config.SetThen(review.TagsAPI, config.DefaultTagsAPI),
	}, nil
}

// tableResponse is the envelope of every table API answer.
type tableResponse[T any] struct {
	Result T `json:"result"`
}

// resolveURL constructs the full URL by checking if the path is absolute or relative.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.BaseURL + path
}

func (c *Client) headersBuilder(ctx context.Context) *resty.Request {
	return c.HTTPClient.RestyClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func (c *Client) get(ctx context.Context, path string, queryParams map[string]string) (*resty.Response, error) {
	return c.headersBuilder(ctx).
		SetQueryParams(queryParams).
		Get(c.resolveURL(path))
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*resty.Response, error) {
	return c.headersBuilder(ctx).
		SetBody(body).
		Post(c.resolveURL(path))
}

// unmarshalResponse parses the JSON body of resp into out after checking the status code.
func unmarshalResponse[T any](operation string, resp *resty.Response, out *T) error {
	if resp.StatusCode() >= http.StatusBadRequest {
		return crnowerrors.NewUpstreamError(operation, resp.StatusCode(), fmt.Errorf("response: %s", truncate(resp.String(), 256)))
	}
	if len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return crnowerrors.NewUpstreamError(operation, resp.StatusCode(), fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return nil
}

// listTable reads every row of table matching query, one page at a time.
func listTable[T any](ctx context.Context, c *Client, operation, table, query, fields string) ([]T, error) {
	var result []T
	offset := 0

	for {
		c.Logger.Debug("fetching page of records", "table", table, "offset", offset, "limit", c.pageSize)
		params := map[string]string{
			"sysparm_query":  query,
			"sysparm_limit":  fmt.Sprint(c.pageSize),
			"sysparm_offset": fmt.Sprint(offset),
		}
		if fields != "" {
			params["sysparm_fields"] = fields
		}

		resp, err := c.get(ctx, tableAPI+table, params)
		if err != nil {
			return nil, crnowerrors.NewUpstreamError(operation, 0, err)
		}

		var page tableResponse[[]T]
		if err := unmarshalResponse(operation, resp, &page); err != nil {
			return nil, err
		}

		result = append(result, page.Result...)
		if len(page.Result) == 0 || len(page.Result) < c.pageSize {
			break
		}
		offset += len(page.Result)
	}

	c.Logger.Debug("successfully fetched records", "table", table, "total", len(result))
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
