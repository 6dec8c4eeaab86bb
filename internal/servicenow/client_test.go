package servicenow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/crnow/internal/blame"
	"github.com/scan-io-git/crnow/internal/record"
	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
)

type requestLog struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, r)
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, pageSize int) (*Client, *requestLog) {
	t.Helper()
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{Review: config.Review{PageSize: pageSize}}
	client, err := New(cfg, hclog.NewNullLogger(), config.Instance{Name: "dev1", URL: server.URL, Username: "admin", Password: "secret"})
	require.NoError(t, err)
	return client, log
}

func writeResult(t *testing.T, w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{"result": result}))
}

func TestFetchByUpdateSet(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/v1/table/sys_update_xml", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)

		q := r.URL.Query()
		assert.Equal(t, "action!=DELETE^update_set=us1^type=Script Include^ORtype=Client Script^ORtype=Business Rule^ORtype=Catalog Client Scripts", q.Get("sysparm_query"))
		assert.Equal(t, "type,name,target_name,payload", q.Get("sysparm_fields"))

		writeResult(t, w, []record.UpdateSetPayload{{Type: "Script Include", Name: "sys_script_include_abc", TargetName: "Util", Payload: "<record_update/>"}})
	}, 10)

	rows, err := client.FetchByUpdateSet(context.Background(), "us1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sys_script_include", rows[0].ClassName())
	assert.Equal(t, 1, log.count())
}

func TestListTablePaginates(t *testing.T) {
	const total = 5
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("sysparm_offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("sysparm_limit"))
		assert.Equal(t, 2, limit)

		var page []record.FlatPayload
		for i := offset; i < total && i < offset+limit; i++ {
			page = append(page, record.FlatPayload{"sys_id": fmt.Sprintf("id%d", i)})
		}
		writeResult(t, w, page)
	}, 2)

	rows, err := listTable[record.FlatPayload](context.Background(), client, "list", "sys_script", "active=true", "")
	require.NoError(t, err)
	require.Len(t, rows, total)
	assert.Equal(t, "id4", rows[4]["sys_id"])
	assert.Equal(t, 3, log.count())
}

func TestFetchByScopedApp(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/now/v1/table/sys_metadata":
			assert.Equal(t, "sys_scope=app1^sys_class_name=sys_script_include^ORsys_class_name=sys_script_client^ORsys_class_name=sys_script", r.URL.Query().Get("sysparm_query"))
			writeResult(t, w, []map[string]string{
				{"sys_id": "a", "sys_class_name": "sys_script"},
				{"sys_id": "b", "sys_class_name": "sys_script_include"},
			})
		case "/api/now/v1/table/sys_script/a":
			writeResult(t, w, map[string]interface{}{"sys_id": "a", "script": "var a;"})
		case "/api/now/v1/table/sys_script_include/b":
			writeResult(t, w, map[string]interface{}{})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}, 100)

	files, err := client.FetchByScopedApp(context.Background(), "app1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a", files[0]["sys_id"])
}

func TestFetchByDeltaWindow(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sys_updated_on>javascript:gs.daysAgoStart(3)", r.URL.Query().Get("sysparm_query"))
		switch r.URL.Path {
		case "/api/now/v1/table/sys_script_include":
			writeResult(t, w, []map[string]string{{"sys_id": "i1"}})
		case "/api/now/v1/table/sys_script_client":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"message":"No Record found"}}`)
		default:
			writeResult(t, w, []map[string]string{{"sys_id": "b1"}, {"sys_id": "b2"}})
		}
	}, 100)

	files, err := client.FetchByDeltaWindow(context.Background(), 3, 30)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestFetchByDeltaWindowValidation(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, []string{})
	}, 100)

	for _, days := range []int{0, 31} {
		_, err := client.FetchByDeltaWindow(context.Background(), days, 30)
		var validation *crnowerrors.ValidationError
		assert.True(t, errors.As(err, &validation))
	}
	assert.Zero(t, log.count())
}

func TestFetchByDeltaWindowAllClassesFail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 100)

	_, err := client.FetchByDeltaWindow(context.Background(), 1, 30)
	var upstream *crnowerrors.UpstreamError
	require.True(t, errors.As(err, &upstream))
}

func TestFetchByExplicitList(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/now/v1/table/sys_script/s1", r.URL.Path)
		writeResult(t, w, map[string]interface{}{"sys_id": "s1", "script": "x"})
	}, 100)

	files, err := client.FetchByExplicitList(context.Background(), []record.FileRef{
		{SysID: "s1", ClassName: "sys_script"},
		{SysID: "s2"},
		{ClassName: "sys_script"},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 1, log.count())
}

func TestFetchFileError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"message":"User Not Authorized"}}`)
	}, 100)

	_, err := client.FetchFile(context.Background(), "sys_script", "s1")
	var upstream *crnowerrors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
}

func TestFetchTagMaps(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, config.DefaultTagsAPI, r.URL.Path)

		var keys []blame.FileKey
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&keys))
		assert.Equal(t, []blame.FileKey{{FileClassName: "sys_script", FileSysID: "f1"}}, keys)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"result":[{"fileSysId":"f1","versionSysId":"v9","tags":{"zoe":[2],"adam":[2,3]}}]}`)
	}, 100)

	tags, err := client.FetchTagMaps(context.Background(), []blame.FileKey{{FileClassName: "sys_script", FileSysID: "f1"}})
	require.NoError(t, err)
	require.Contains(t, tags, "f1")
	assert.Equal(t, "v9", tags["f1"].VersionSysID)
	assert.Equal(t, "zoe", tags["f1"].Tags[0].Developer)
	assert.Equal(t, "adam", tags["f1"].Tags[1].Developer)
}

func TestFetchTagMapsFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 100)

	_, err := client.FetchTagMaps(context.Background(), nil)
	var upstream *crnowerrors.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
}

func TestNewDefaultsBaseURL(t *testing.T) {
	client, err := New(&config.Config{}, hclog.NewNullLogger(), config.Instance{Name: "acme", Username: "u"})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.service-now.com", client.BaseURL)
	assert.Equal(t, config.DefaultPageSize, client.pageSize)
}
